package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/termai-dev/termai/internal/store"
)

// ErrBranchCycle is returned when a branch's requested parent would
// create a cycle in the branch ancestry.
var ErrBranchCycle = fmt.Errorf("session: branch parent would create a cycle")

// ErrBranchClosed is returned when a message append is attempted
// against an archived or merged branch.
var ErrBranchClosed = fmt.Errorf("session: branch is archived or merged")

// BranchManager wraps the store's branch tables with the invariants the
// store itself does not enforce: acyclicity and the no-new-messages
// rule for closed branches.
type BranchManager struct {
	store *store.Store
}

// NewBranchManager wraps an open store.
func NewBranchManager(st *store.Store) *BranchManager {
	return &BranchManager{store: st}
}

// CreateBranch creates a new branch under sessionID. A nil parentID
// marks a root branch; a non-nil parentID is checked against the
// existing ancestry to reject cycles.
func (b *BranchManager) CreateBranch(sessionID string, parentID *string, name, description string) (*store.Branch, error) {
	if parentID != nil {
		if err := b.checkAcyclic(*parentID, *parentID); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	branch := &store.Branch{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		ParentBranchID: parentID,
		Name:           name,
		Description:    description,
		Status:         store.BranchActive,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := b.store.AddBranch(branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// checkAcyclic walks the ancestry of candidateID looking for a cycle
// back to rootID.
func (b *BranchManager) checkAcyclic(candidateID, rootID string) error {
	seen := map[string]bool{}
	cur := candidateID
	for {
		if seen[cur] {
			return ErrBranchCycle
		}
		seen[cur] = true
		branch, err := b.store.FetchBranch(cur)
		if err != nil {
			if err == store.ErrNotFound {
				return nil
			}
			return err
		}
		if branch.ParentBranchID == nil {
			return nil
		}
		if *branch.ParentBranchID == rootID {
			return ErrBranchCycle
		}
		cur = *branch.ParentBranchID
	}
}

// AppendMessage records a message on a branch, rejecting the append if
// the branch is archived or merged.
func (b *BranchManager) AppendMessage(branchID, messageID string) error {
	branch, err := b.store.FetchBranch(branchID)
	if err != nil {
		return err
	}
	if branch.Status != store.BranchActive {
		return ErrBranchClosed
	}
	return b.store.AppendMessageToBranch(branchID, messageID)
}

// SetStatus transitions a branch's status and bumps its last-activity
// timestamp.
func (b *BranchManager) SetStatus(branchID string, status store.BranchStatus) error {
	return b.store.UpdateBranchStatus(branchID, status, time.Now().UTC())
}

// ListBranches returns every branch belonging to a session.
func (b *BranchManager) ListBranches(sessionID string) ([]*store.Branch, error) {
	return b.store.ListBranchesForSession(sessionID)
}
