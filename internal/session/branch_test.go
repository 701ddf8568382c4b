package session

import (
	"testing"

	"github.com/termai-dev/termai/internal/llm"
	"github.com/termai-dev/termai/internal/store"
	"github.com/termai-dev/termai/internal/types"
)

func TestBranchCreateRootAndChild(t *testing.T) {
	st := newTestStore(t)
	registry := llm.NewRegistry()
	m := NewManager(st, registry, &fakeResolver{token: "tok"}, nil)
	sess, err := m.SessionAdd("branched")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bm := NewBranchManager(st)
	root, err := bm.CreateBranch(sess.ID, nil, "root", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	child, err := bm.CreateBranch(sess.ID, &root.ID, "child", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if child.ParentBranchID == nil || *child.ParentBranchID != root.ID {
		t.Fatalf("expected child to point at root, got %+v", child)
	}
}

func TestBranchRejectsAppendWhenClosed(t *testing.T) {
	st := newTestStore(t)
	registry := llm.NewRegistry()
	m := NewManager(st, registry, &fakeResolver{token: "tok"}, nil)
	sess, err := m.SessionAdd("branched")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.SessionAddMessages(sess, []types.Message{{Role: types.RoleUser, Content: "hi"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bm := NewBranchManager(st)
	branch, err := bm.CreateBranch(sess.ID, nil, "b1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bm.AppendMessage(branch.ID, sess.Messages[0].ID); err != nil {
		t.Fatalf("unexpected error appending to active branch: %v", err)
	}

	if err := bm.SetStatus(branch.ID, store.BranchArchived); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bm.AppendMessage(branch.ID, sess.Messages[0].ID); err != ErrBranchClosed {
		t.Fatalf("expected ErrBranchClosed, got %v", err)
	}
}
