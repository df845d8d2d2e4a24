package memory

import (
	"context"
	"testing"
	"time"

	"health-consent/internal/domain/groups"
)

func TestGroupRepo_DeleteCascades(t *testing.T) {
	repo := NewGroupRepo()
	ctx := context.Background()

	g := groups.Group{ID: "g1", Name: "Doe", Leader: "lead", CreatedAt: t0}
	if err := repo.Create(ctx, g, groups.Member{GroupID: "g1", PatientID: "lead", Role: groups.RoleLeader, JoinedAt: t0}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.AddMember(ctx, groups.Member{GroupID: "g1", PatientID: "b", Role: groups.RoleMember, Relation: groups.RelationSpouse, JoinedAt: t0.Add(time.Second)}); err != nil {
		t.Fatalf("AddMember error: %v", err)
	}
	if err := repo.AddMember(ctx, groups.Member{GroupID: "g1", PatientID: "b"}); err != groups.ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	created, _ := repo.PutGrant(ctx, groups.Grant{GroupID: "g1", Grantee: "b", GrantedBy: "lead"})
	again, _ := repo.PutGrant(ctx, groups.Grant{GroupID: "g1", Grantee: "b", GrantedBy: "lead"})
	if !created || again {
		t.Fatalf("expected idempotent PutGrant, got %v/%v", created, again)
	}

	ms, _ := repo.ListMembers(ctx, "g1")
	if len(ms) != 2 || ms[0].Role != groups.RoleLeader {
		t.Fatalf("unexpected members: %#v", ms)
	}

	if err := repo.Delete(ctx, "g1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if ok, _ := repo.HasGrant(ctx, "b", "lead"); ok {
		t.Fatalf("expected grants deleted with the group")
	}
	if _, err := repo.GetMember(ctx, "g1", "b"); err == nil {
		t.Fatalf("expected members deleted with the group")
	}
}

func TestGroupRepo_RemoveMemberDropsItsGrants(t *testing.T) {
	repo := NewGroupRepo()
	ctx := context.Background()

	_ = repo.Create(ctx, groups.Group{ID: "g1", Leader: "lead"}, groups.Member{GroupID: "g1", PatientID: "lead", Role: groups.RoleLeader})
	_ = repo.AddMember(ctx, groups.Member{GroupID: "g1", PatientID: "a", Role: groups.RoleMember})
	_ = repo.AddMember(ctx, groups.Member{GroupID: "g1", PatientID: "b", Role: groups.RoleMember})

	_, _ = repo.PutGrant(ctx, groups.Grant{GroupID: "g1", Grantee: "b", GrantedBy: "a"})
	_, _ = repo.PutGrant(ctx, groups.Grant{GroupID: "g1", Grantee: "a", GrantedBy: "lead"})
	_, _ = repo.PutGrant(ctx, groups.Grant{GroupID: "g1", Grantee: "b", GrantedBy: "lead"})

	if err := repo.RemoveMember(ctx, "g1", "a"); err != nil {
		t.Fatalf("RemoveMember error: %v", err)
	}

	grants, _ := repo.ListGrants(ctx, "g1")
	if len(grants) != 1 || grants[0].Grantee != "b" || grants[0].GrantedBy != "lead" {
		t.Fatalf("unexpected grants left: %#v", grants)
	}

	n, _ := repo.DeleteGrants(ctx, "lead", "b", "")
	if n != 1 {
		t.Fatalf("expected 1 grant deleted, got %d", n)
	}
}
