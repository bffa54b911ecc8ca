package service

import (
	"context"
	"testing"
	"time"

	"github.com/diario/internal/db"
	"github.com/pkg/errors"
)

func TestReactionLifecycle(t *testing.T) {
	gdb := setupServiceTestDB(t)
	article := createPublishedArticle(t, gdb, "Reacciones", time.Now())
	alice := createUser(t, gdb, "alice", db.RoleReader)
	bob := createUser(t, gdb, "bob", db.RoleReader)
	svc := NewReactionService(gdb)
	ctx := context.Background()

	mine, err := svc.Mine(ctx, article.ID, alice)
	if err != nil {
		t.Fatalf("mine failed: %v", err)
	}
	if mine != nil {
		t.Fatalf("expected no reaction yet, got %+v", mine)
	}

	reaction, created, err := svc.React(ctx, article.ID, alice, "interesa")
	if err != nil {
		t.Fatalf("react failed: %v", err)
	}
	if !created || reaction.Kind != db.ReactionInterest {
		t.Fatalf("expected new interesa reaction, got created=%v %+v", created, reaction)
	}

	if _, _, err := svc.React(ctx, article.ID, bob, "Enoja"); err != nil {
		t.Fatalf("react failed: %v", err)
	}

	reaction, created, err = svc.React(ctx, article.ID, alice, "divierte")
	if err != nil {
		t.Fatalf("change reaction failed: %v", err)
	}
	if created || reaction.Kind != db.ReactionFun {
		t.Fatalf("expected replaced divierte reaction, got created=%v %+v", created, reaction)
	}

	counts, err := svc.Counts(ctx, article.ID)
	if err != nil {
		t.Fatalf("counts failed: %v", err)
	}
	want := map[string]int64{"interesa": 0, "divierte": 1, "entristece": 0, "enoja": 1}
	for kind, n := range want {
		if counts[kind] != n {
			t.Fatalf("expected %s=%d, got %d", kind, n, counts[kind])
		}
	}

	if err := svc.Remove(ctx, article.ID, alice); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	mine, err = svc.Mine(ctx, article.ID, alice)
	if err != nil || mine != nil {
		t.Fatalf("expected reaction removed, got %+v err=%v", mine, err)
	}
}

func TestReactionValidation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	article := createPublishedArticle(t, gdb, "Validacion", time.Now())
	user := createUser(t, gdb, "carla", db.RoleReader)
	svc := NewReactionService(gdb)
	ctx := context.Background()

	if _, _, err := svc.React(ctx, article.ID, user, "aburre"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := svc.React(ctx, article.ID, nil, "interesa"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, _, err := svc.React(ctx, article.ID+10, user, "interesa"); !errors.Is(err, ErrArticleNotFound) {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
	if _, err := svc.Counts(ctx, article.ID+10); !errors.Is(err, ErrArticleNotFound) {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
}
