package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ideaforge/api/internal/draft"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Revision describes one committed draft snapshot.
type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service keeps one git repository per idea, with the draft serialized as
// draft.json on the main branch. Every successful autosave becomes a commit.
type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// EnsureIdeaRepo initializes the repository for an idea if it does not exist,
// committing the given fields as the baseline.
func (s *Service) EnsureIdeaRepo(ideaID string, initial draft.Fields, author string) error {
	lock := s.ideaLock(ideaID)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(ideaID)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	payload, err := json.MarshalIndent(initial, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal initial draft: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, "draft.json"), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write initial draft: %w", err)
	}
	if _, err := worktree.Add("draft.json"); err != nil {
		return fmt.Errorf("git add initial draft: %w", err)
	}
	hash, err := worktree.Commit("Create idea draft", &git.CommitOptions{
		Author: signature(author),
	})
	if err != nil {
		return fmt.Errorf("commit initial draft: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

// CommitDraft records a new draft snapshot on main. A snapshot identical to
// HEAD produces no commit and returns the HEAD revision.
func (s *Service) CommitDraft(ideaID string, fields draft.Fields, author, message string) (Revision, error) {
	lock := s.ideaLock(ideaID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(ideaID))
	if err != nil {
		return Revision{}, fmt.Errorf("open repo: %w", err)
	}

	head, err := s.headCommit(repo)
	if err != nil {
		return Revision{}, err
	}
	current, err := readDraftFromCommit(head)
	if err == nil && current == fields {
		return toRevision(head), nil
	}

	hash, err := s.commit(repo, fields, author, message)
	if err != nil {
		return Revision{}, err
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), nil
}

// GetDraftByHash returns the draft snapshot recorded at the given commit.
// Abbreviated hashes are resolved.
func (s *Service) GetDraftByHash(ideaID, hash string) (draft.Fields, Revision, error) {
	lock := s.ideaLock(ideaID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(ideaID))
	if err != nil {
		return draft.Fields{}, Revision{}, fmt.Errorf("open repo: %w", err)
	}

	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return draft.Fields{}, Revision{}, err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return draft.Fields{}, Revision{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	fields, err := readDraftFromCommit(commitObj)
	if err != nil {
		return draft.Fields{}, Revision{}, err
	}
	return fields, toRevision(commitObj), nil
}

// History lists revisions on main, newest first.
func (s *Service) History(ideaID string, limit int) ([]Revision, error) {
	lock := s.ideaLock(ideaID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(ideaID))
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		return nil, fmt.Errorf("resolve main: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// DeleteIdeaRepo removes the repository for an idea.
func (s *Service) DeleteIdeaRepo(ideaID string) error {
	lock := s.ideaLock(ideaID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(ideaID)); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	return nil
}

func (s *Service) repoPath(ideaID string) string {
	return filepath.Join(s.baseDir, ideaID)
}

func (s *Service) ideaLock(ideaID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[ideaID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[ideaID] = lock
	return lock
}

func (s *Service) headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		return nil, fmt.Errorf("resolve main: %w", err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load head commit: %w", err)
	}
	return commitObj, nil
}

func (s *Service) commit(repo *git.Repository, fields draft.Fields, author, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal draft: %w", err)
	}

	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, "draft.json"), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write draft.json: %w", err)
	}

	if _, err := worktree.Add("draft.json"); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add draft: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: signature(author),
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit draft: %w", err)
	}
	return hash, nil
}

func readDraftFromCommit(commitObj *object.Commit) (draft.Fields, error) {
	file, err := commitObj.File("draft.json")
	if err != nil {
		return draft.Fields{}, fmt.Errorf("load draft.json from commit: %w", err)
	}
	reader, err := file.Reader()
	if err != nil {
		return draft.Fields{}, fmt.Errorf("open draft reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return draft.Fields{}, fmt.Errorf("read draft bytes: %w", err)
	}

	var fields draft.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return draft.Fields{}, fmt.Errorf("decode commit draft: %w", err)
	}
	return fields, nil
}

func toRevision(commitObj *object.Commit) Revision {
	return Revision{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func signature(author string) *object.Signature {
	return &object.Signature{
		Name:  author,
		Email: fmt.Sprintf("%s@local.ideaforge.dev", sanitizeEmail(author)),
		When:  time.Now(),
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
