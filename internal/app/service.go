package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"ideaforge/api/internal/assist"
	"ideaforge/api/internal/auth"
	"ideaforge/api/internal/config"
	"ideaforge/api/internal/draft"
	"ideaforge/api/internal/export"
	"ideaforge/api/internal/history"
	"ideaforge/api/internal/scorecache"
	"ideaforge/api/internal/search"
	"ideaforge/api/internal/store"
	"ideaforge/api/internal/util"
	"ideaforge/api/internal/validation"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	JTI       string
	ExpiresAt time.Time
}

type dataStore interface {
	EnsureUserByName(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	InsertIdea(context.Context, store.Idea) error
	GetIdea(context.Context, string) (store.Idea, error)
	ListIdeas(context.Context, string) ([]store.Idea, error)
	SaveIdeaFields(context.Context, string, draft.Fields) (store.Idea, error)
	DeleteIdea(context.Context, string) error
	InsertValidationResult(context.Context, store.ValidationRecord) error
	LatestValidationResult(context.Context, string) (store.ValidationRecord, error)
	ListValidationResults(context.Context, string, int) ([]store.ValidationRecord, error)
	SummaryCounts(context.Context, int) (int, int, int, error)
	Ping(ctx context.Context) error
}

type historyService interface {
	EnsureIdeaRepo(string, draft.Fields, string) error
	CommitDraft(string, draft.Fields, string, string) (history.Revision, error)
	History(string, int) ([]history.Revision, error)
	GetDraftByHash(string, string) (draft.Fields, history.Revision, error)
	DeleteIdeaRepo(string) error
}

type scoreCache interface {
	Set(ctx context.Context, ideaID string, result validation.Result) error
	Get(ctx context.Context, ideaID string) (validation.Result, bool, error)
	Invalidate(ctx context.Context, ideaID string) error
}

// ideaSession is the in-memory working state of one open idea: the draft
// store with its sync engine, the validation orchestrator, and the
// field-assist requester. Created lazily on first touch, hydrated from the
// server snapshot.
type ideaSession struct {
	owner     string
	manager   *draft.Manager
	validator *validation.Orchestrator
	assistant *assist.Requester
}

type Service struct {
	cfg       config.Config
	store     dataStore
	history   historyService
	search    *search.Service
	cache     scoreCache
	scorer    validation.Scorer
	suggester assist.Suggester
	exporter  *export.Service
	artifacts *export.ArtifactStore

	mu    sync.Mutex
	ideas map[string]*ideaSession
}

// New wires the service. search, cache, and artifacts may be nil; the
// relevant features degrade (Postgres-only search, store-backed validation
// reads, no report archive).
func New(cfg config.Config, dataStore *store.PostgresStore, historySvc *history.Service, searchSvc *search.Service, scorer validation.Scorer, suggester assist.Suggester) *Service {
	svc := &Service{
		cfg:       cfg,
		store:     dataStore,
		history:   historySvc,
		search:    searchSvc,
		scorer:    scorer,
		suggester: suggester,
		ideas:     make(map[string]*ideaSession),
	}
	svc.exporter = export.NewService(dataStore)
	return svc
}

// WithScoreCache attaches the Redis score cache.
func (s *Service) WithScoreCache(cache *scorecache.RedisCache) *Service {
	s.cache = cache
	return s
}

// WithArtifactStore attaches the object-storage report archive.
func (s *Service) WithArtifactStore(artifacts *export.ArtifactStore) *Service {
	s.artifacts = artifacts
	return s
}

// Bootstrap seeds a demo founder and idea on an empty database and kicks off
// a search reindex.
func (s *Service) Bootstrap(ctx context.Context) error {
	ideaCount, _, _, err := s.store.SummaryCounts(ctx, validation.StageUnlockThreshold)
	if err != nil {
		return err
	}
	if ideaCount == 0 {
		owner, err := s.store.EnsureUserByName(ctx, "Sarah")
		if err != nil {
			return err
		}
		seed := store.Idea{
			ID:        "idea-farmconnect",
			OwnerName: owner.DisplayName,
			Fields: draft.Fields{
				Title:   "FarmConnect",
				Problem: "Small farmers have no direct channel to local buyers and lose margin to distributors.",
				Market:  "Independent farms within 100 miles of mid-size cities.",
			},
		}
		if err := s.store.InsertIdea(ctx, seed); err != nil {
			return err
		}
		if s.history != nil {
			if err := s.history.EnsureIdeaRepo(seed.ID, seed.Fields, owner.DisplayName); err != nil {
				return err
			}
		}
	}

	if s.search != nil {
		go s.search.ReindexAllFromPG(context.Background())
	}
	return nil
}

func (s *Service) Login(ctx context.Context, name string) (Session, error) {
	userName := strings.TrimSpace(name)
	if userName == "" {
		userName = "Founder"
	}

	user, err := s.store.EnsureUserByName(ctx, userName)
	if err != nil {
		return Session{}, err
	}

	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// ideaSaver is the sync engine's persistence hook: it writes the snapshot to
// Postgres, commits a draft revision, and refreshes the search index.
type ideaSaver struct {
	svc   *Service
	owner string
}

func (p ideaSaver) SaveDraft(ctx context.Context, ideaID string, fields draft.Fields) (draft.Saved, error) {
	idea, err := p.svc.store.SaveIdeaFields(ctx, ideaID, fields)
	if err != nil {
		return draft.Saved{}, err
	}
	if p.svc.history != nil {
		if _, err := p.svc.history.CommitDraft(ideaID, idea.Fields, p.owner, "Autosave"); err != nil {
			log.Printf("app: draft revision commit %s: %v", ideaID, err)
		}
	}
	p.svc.indexIdea(ctx, idea)
	return draft.Saved{Fields: idea.Fields, UpdatedAt: idea.UpdatedAt}, nil
}

func (s *Service) indexIdea(ctx context.Context, idea store.Idea) {
	if s.search == nil {
		return
	}
	rec := search.IdeaRecord{
		ID:       idea.ID,
		Title:    idea.Fields.Title,
		Problem:  idea.Fields.Problem,
		Solution: idea.Fields.Solution,
		Market:   idea.Fields.Market,
		Owner:    idea.OwnerName,
	}
	if record, err := s.store.LatestValidationResult(ctx, idea.ID); err == nil {
		rec.Verdict = record.Verdict
		rec.Score = record.Score
	}
	s.search.IndexIdea(rec)
}

// ensureSession returns the working session for an idea, hydrating it from
// the server snapshot on first touch. Owner mismatches are rejected.
func (s *Service) ensureSession(ctx context.Context, session Session, ideaID string) (*ideaSession, error) {
	s.mu.Lock()
	existing, ok := s.ideas[ideaID]
	s.mu.Unlock()
	if ok {
		if existing.owner != session.UserName {
			return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		}
		return existing, nil
	}

	idea, err := s.store.GetIdea(ctx, ideaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Idea not found", nil)
		}
		return nil, err
	}
	if idea.OwnerName != session.UserName {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	sess := s.newIdeaSession(ideaID, idea.OwnerName)
	sess.manager.Hydrate(draft.Saved{Fields: idea.Fields, UpdatedAt: idea.UpdatedAt})

	s.mu.Lock()
	// Another request may have raced us; keep the first one.
	if winner, ok := s.ideas[ideaID]; ok {
		sess = winner
	} else {
		s.ideas[ideaID] = sess
	}
	s.mu.Unlock()
	return sess, nil
}

func (s *Service) newIdeaSession(ideaID, owner string) *ideaSession {
	manager := draft.NewManager(ideaID, ideaSaver{svc: s, owner: owner}, draft.Options{
		Debounce:    s.cfg.AutosaveDebounce,
		SavedHold:   s.cfg.SavedStatusHold,
		SaveTimeout: s.cfg.SaveTimeout,
	})
	return &ideaSession{
		owner:     owner,
		manager:   manager,
		validator: validation.NewOrchestrator(s.scorer),
		assistant: assist.NewRequester(s.suggester, manager),
	}
}

func (s *Service) dropSession(ideaID string) {
	s.mu.Lock()
	sess, ok := s.ideas[ideaID]
	delete(s.ideas, ideaID)
	s.mu.Unlock()
	if ok {
		sess.manager.Reset()
	}
}

// CreateIdea persists a new draft and opens its working session.
func (s *Service) CreateIdea(ctx context.Context, session Session, fields draft.Fields) (map[string]any, error) {
	idea := store.Idea{
		ID:        util.NewID("idea"),
		OwnerName: session.UserName,
		Fields:    fields,
	}
	if err := s.store.InsertIdea(ctx, idea); err != nil {
		return nil, err
	}
	stored, err := s.store.GetIdea(ctx, idea.ID)
	if err != nil {
		return nil, err
	}

	if s.history != nil {
		if err := s.history.EnsureIdeaRepo(idea.ID, stored.Fields, session.UserName); err != nil {
			log.Printf("app: init draft history %s: %v", idea.ID, err)
		}
	}
	s.indexIdea(ctx, stored)

	sess := s.newIdeaSession(idea.ID, session.UserName)
	sess.manager.Hydrate(draft.Saved{Fields: stored.Fields, UpdatedAt: stored.UpdatedAt})
	s.mu.Lock()
	s.ideas[idea.ID] = sess
	s.mu.Unlock()

	return s.ideaPayload(ctx, stored, sess), nil
}

// ListIdeas returns the caller's ideas with their latest scores plus the
// dashboard summary counts.
func (s *Service) ListIdeas(ctx context.Context, session Session) (map[string]any, error) {
	ideas, err := s.store.ListIdeas(ctx, session.UserName)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(ideas))
	for _, idea := range ideas {
		item := map[string]any{
			"id":        idea.ID,
			"title":     idea.Fields.Title,
			"problem":   idea.Fields.Problem,
			"updatedAt": idea.UpdatedAt,
		}
		if record, err := s.store.LatestValidationResult(ctx, idea.ID); err == nil {
			item["score"] = record.Score
			item["verdict"] = record.Verdict
			item["unlocked"] = record.Score >= validation.StageUnlockThreshold
		}
		items = append(items, item)
	}

	totalIdeas, validated, unlocked, err := s.store.SummaryCounts(ctx, validation.StageUnlockThreshold)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"ideas": items,
		"summary": map[string]any{
			"ideas":     totalIdeas,
			"validated": validated,
			"unlocked":  unlocked,
		},
	}, nil
}

// GetIdea returns the draft, its save status, and the latest validation.
func (s *Service) GetIdea(ctx context.Context, session Session, ideaID string) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}
	idea, err := s.store.GetIdea(ctx, ideaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Idea not found", nil)
		}
		return nil, err
	}
	return s.ideaPayload(ctx, idea, sess), nil
}

func (s *Service) ideaPayload(ctx context.Context, idea store.Idea, sess *ideaSession) map[string]any {
	payload := map[string]any{
		"id":        idea.ID,
		"owner":     idea.OwnerName,
		"fields":    sess.manager.Snapshot(),
		"status":    sess.manager.Status(),
		"createdAt": idea.CreatedAt,
		"updatedAt": idea.UpdatedAt,
	}
	if result := s.latestResult(ctx, idea.ID, sess); result != nil {
		payload["validation"] = resultPayload(*result)
	}
	return payload
}

// EditField applies one field edit; the sync engine schedules the debounced
// autosave.
func (s *Service) EditField(ctx context.Context, session Session, ideaID, field, value string) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}
	fields, err := sess.manager.SetField(field, value)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return map[string]any{
		"fields": fields,
		"status": sess.manager.Status(),
	}, nil
}

// SaveNow flushes the draft immediately, bypassing the debounce window.
func (s *Service) SaveNow(ctx context.Context, session Session, ideaID string) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}
	sess.manager.SaveNow()
	return map[string]any{"status": sess.manager.Status()}, nil
}

// SaveStatus reports the sync engine state for the status indicator.
func (s *Service) SaveStatus(ctx context.Context, session Session, ideaID string) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"status": sess.manager.Status()}
	if server := sess.manager.Server(); server != nil {
		payload["savedAt"] = server.UpdatedAt
	}
	return payload, nil
}

// DeleteIdea removes the draft everywhere. Unlike autosave, deletion failures
// are surfaced to the caller.
func (s *Service) DeleteIdea(ctx context.Context, session Session, ideaID string) error {
	if _, err := s.ensureSession(ctx, session, ideaID); err != nil {
		return err
	}
	if err := s.store.DeleteIdea(ctx, ideaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Idea not found", nil)
		}
		return domainError(http.StatusInternalServerError, "DELETE_FAILED", "Could not delete idea", nil)
	}

	s.dropSession(ideaID)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ideaID); err != nil {
			log.Printf("app: invalidate score cache %s: %v", ideaID, err)
		}
	}
	if s.search != nil {
		s.search.DeleteIdea(ideaID)
	}
	if s.history != nil {
		if err := s.history.DeleteIdeaRepo(ideaID); err != nil {
			log.Printf("app: delete draft history %s: %v", ideaID, err)
		}
	}
	return nil
}

// Validate submits the current draft snapshot for scoring. With isRefinement
// set the outcome carries the score delta against the previous run.
func (s *Service) Validate(ctx context.Context, session Session, ideaID string, isRefinement bool) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.validator.Validate(ctx, sess.manager.Snapshot(), isRefinement)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrMissingRequiredFields):
			return nil, domainError(http.StatusUnprocessableEntity, "MISSING_REQUIRED_FIELDS",
				"Add a title and a problem statement before validating", nil)
		case errors.Is(err, validation.ErrValidationInProgress):
			return nil, domainError(http.StatusConflict, "VALIDATION_IN_PROGRESS",
				"A validation is already running for this idea", nil)
		default:
			return nil, domainError(http.StatusBadGateway, "VALIDATION_FAILED",
				"Validation failed, your previous score is unchanged", nil)
		}
	}

	record := store.ValidationRecord{
		IdeaID:       ideaID,
		Score:        outcome.Result.Score,
		Verdict:      string(outcome.Result.Verdict),
		Dimensions:   outcome.Result.Dimensions,
		IsRefinement: outcome.Refined,
	}
	if err := s.store.InsertValidationResult(ctx, record); err != nil {
		log.Printf("app: persist validation %s: %v", ideaID, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, ideaID, outcome.Result); err != nil {
			log.Printf("app: cache validation %s: %v", ideaID, err)
		}
	}
	if idea, err := s.store.GetIdea(ctx, ideaID); err == nil {
		s.indexIdea(ctx, idea)
	}

	payload := resultPayload(outcome.Result)
	if outcome.Refined {
		payload["refined"] = true
		payload["previousScore"] = outcome.PreviousScore
		payload["delta"] = outcome.Delta
	}
	return payload, nil
}

// LatestValidation returns the idea's current result, if any.
func (s *Service) LatestValidation(ctx context.Context, session Session, ideaID string) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}
	result := s.latestResult(ctx, ideaID, sess)
	if result == nil {
		return map[string]any{"validated": false, "pending": sess.validator.Pending()}, nil
	}
	payload := resultPayload(*result)
	payload["validated"] = true
	payload["pending"] = sess.validator.Pending()
	return payload, nil
}

// latestResult checks the in-memory orchestrator first, then the score
// cache, then Postgres.
func (s *Service) latestResult(ctx context.Context, ideaID string, sess *ideaSession) *validation.Result {
	if result := sess.validator.Latest(); result != nil {
		return result
	}
	if s.cache != nil {
		if result, ok, err := s.cache.Get(ctx, ideaID); err == nil && ok {
			return &result
		}
	}
	record, err := s.store.LatestValidationResult(ctx, ideaID)
	if err != nil {
		return nil
	}
	result := validation.Result{
		Score:       record.Score,
		Verdict:     validation.Verdict(record.Verdict),
		Dimensions:  record.Dimensions,
		ValidatedAt: record.CreatedAt,
	}
	return &result
}

func resultPayload(result validation.Result) map[string]any {
	return map[string]any{
		"score":       result.Score,
		"verdict":     result.Verdict,
		"dimensions":  result.Dimensions,
		"validatedAt": result.ValidatedAt,
		"unlocked":    result.Unlocked(),
	}
}

// Suggest fetches an AI suggestion for one field and applies it to the
// draft, riding the normal autosave path.
func (s *Service) Suggest(ctx context.Context, session Session, ideaID, field string) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}
	value, err := sess.assistant.Request(ctx, field)
	if err != nil {
		switch {
		case errors.Is(err, assist.ErrSuggestionInProgress):
			return nil, domainError(http.StatusConflict, "SUGGESTION_IN_PROGRESS",
				"A suggestion for this field is already running", nil)
		case errors.Is(err, assist.ErrSuggestionFailed):
			return nil, domainError(http.StatusBadGateway, "SUGGESTION_FAILED",
				"Could not fetch a suggestion, the field is unchanged", nil)
		default:
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		}
	}
	return map[string]any{
		"field":  field,
		"value":  value,
		"status": sess.manager.Status(),
	}, nil
}

// Diff compares the local draft against the last server snapshot.
func (s *Service) Diff(ctx context.Context, session Session, ideaID string) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}

	var server *draft.Fields
	snapshot := sess.manager.Server()
	if snapshot != nil {
		server = &snapshot.Fields
	}
	diffs := draft.Diff(server, sess.manager.Snapshot())

	changed := 0
	for _, d := range diffs {
		if d.Changed {
			changed++
		}
	}
	payload := map[string]any{
		"diffs":      diffs,
		"hasChanges": changed > 0,
	}
	if snapshot != nil {
		payload["serverUpdatedAt"] = snapshot.UpdatedAt
	}
	return payload, nil
}

// Resolve applies a comparison resolution. keep-local keeps the draft as is;
// use-server discards local edits and rehydrates from the stored snapshot.
func (s *Service) Resolve(ctx context.Context, session Session, ideaID, strategy string) (map[string]any, error) {
	sess, err := s.ensureSession(ctx, session, ideaID)
	if err != nil {
		return nil, err
	}

	switch strategy {
	case "keep-local":
		// Nothing to do; the local draft already wins.
	case "use-server":
		idea, err := s.store.GetIdea(ctx, ideaID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Idea not found", nil)
			}
			return nil, err
		}
		sess.manager.Hydrate(draft.Saved{Fields: idea.Fields, UpdatedAt: idea.UpdatedAt})
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			"strategy must be keep-local or use-server", nil)
	}

	return map[string]any{
		"strategy": strategy,
		"fields":   sess.manager.Snapshot(),
		"status":   sess.manager.Status(),
	}, nil
}

// History lists the idea's draft revisions, newest first.
func (s *Service) History(ctx context.Context, session Session, ideaID string, limit int) (map[string]any, error) {
	if _, err := s.ensureSession(ctx, session, ideaID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return map[string]any{"revisions": []history.Revision{}}, nil
	}
	revisions, err := s.history.History(ideaID, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"revisions": revisions}, nil
}

// Export renders the validation report and, when an artifact store is
// configured, archives a copy.
func (s *Service) Export(ctx context.Context, session Session, ideaID string, format export.Format) (*export.Result, error) {
	if _, err := s.ensureSession(ctx, session, ideaID); err != nil {
		return nil, err
	}

	result, err := s.exporter.Export(ctx, export.Request{IdeaID: ideaID, Format: format})
	if err != nil {
		if errors.Is(err, export.ErrNoValidation) {
			return nil, domainError(http.StatusConflict, "NOT_VALIDATED",
				"Validate the idea before exporting a report", nil)
		}
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE",
				"Report rendering is not available on this host", nil)
		}
		return nil, err
	}

	if s.artifacts != nil {
		if name, err := s.artifacts.Archive(ctx, ideaID, result); err != nil {
			log.Printf("app: archive report %s: %v", ideaID, err)
		} else {
			log.Printf("app: archived report %s as %s", ideaID, name)
		}
	}
	return result, nil
}

// Search runs a full-text query over the caller's ideas.
func (s *Service) Search(ctx context.Context, session Session, text, verdict string, limit, offset int) (search.Response, error) {
	q := search.Query{
		Text:          text,
		FilterOwner:   session.UserName,
		FilterVerdict: verdict,
		Limit:         limit,
		Offset:        offset,
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(q), nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
