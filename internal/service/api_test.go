package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	pkgcrypto "github.com/gatewarden/authdb/internal/crypto"
	"github.com/gatewarden/authdb/internal/errs"
)

func TestApiService_Create_PopulatesCredentials(t *testing.T) {
	repo := newFakeApis()
	svc := NewApiService(repo)
	ctx := context.Background()

	api, err := svc.Create(ctx, CreateApiInput{
		Name:     "Resource1",
		Address:  "localhost:9001",
		Category: "RESOURCE",
		Password: "Api_pass_1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if api.ID.IsNil() {
		t.Fatalf("id not assigned")
	}
	if !strings.HasPrefix(api.Password, "$argon2id$") {
		t.Fatalf("password stored without digest: %q", api.Password)
	}
	if !pkgcrypto.VerifyPassword("Api_pass_1", api.Password) {
		t.Fatalf("digest does not verify")
	}
	if len(api.AccessKey) != pkgcrypto.AccessKeyLen {
		t.Fatalf("access key len = %d", len(api.AccessKey))
	}
	if len(api.PublicKey) == 0 || len(api.PrivateKey) == 0 {
		t.Fatalf("keypair missing")
	}

	stored, err := repo.Read(ctx, api.ID)
	if err != nil || stored.Name != "Resource1" {
		t.Fatalf("stored read: %+v err=%v", stored, err)
	}
}

func TestApiService_Create_Validation(t *testing.T) {
	svc := NewApiService(newFakeApis())
	ctx := context.Background()

	cases := []CreateApiInput{
		{Address: "localhost:9001", Password: "p"},
		{Name: "Resource1", Password: "p"},
		{Name: "Resource1", Address: "localhost:9001"},
	}
	for i, in := range cases {
		if _, err := svc.Create(ctx, in); err == nil {
			t.Fatalf("case %d: want validation error", i)
		}
	}
}

func TestApiService_Create_DuplicateName(t *testing.T) {
	svc := NewApiService(newFakeApis())
	ctx := context.Background()

	in := CreateApiInput{Name: "Resource1", Address: "localhost:9001", Password: "p"}
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, in); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestApiService_Update_RehashesPassword(t *testing.T) {
	repo := newFakeApis()
	svc := NewApiService(repo)
	ctx := context.Background()

	api, err := svc.Create(ctx, CreateApiInput{Name: "Resource1", Address: "localhost:9001", Password: "old"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newPass := "new_pass"
	if err := svc.Update(ctx, api.ID, UpdateApiInput{Password: &newPass}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.lastUp.Password == nil {
		t.Fatalf("password not forwarded")
	}
	if *repo.lastUp.Password == newPass {
		t.Fatalf("plaintext reached the repository")
	}
	if !pkgcrypto.VerifyPassword(newPass, *repo.lastUp.Password) {
		t.Fatalf("new digest does not verify")
	}
}

func TestApiService_RotateKeys_ReplacesMaterial(t *testing.T) {
	repo := newFakeApis()
	svc := NewApiService(repo)
	ctx := context.Background()

	api, err := svc.Create(ctx, CreateApiInput{Name: "Resource1", Address: "localhost:9001", Password: "p"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	oldKey := append([]byte(nil), api.AccessKey...)

	if err := svc.RotateKeys(ctx, api.ID); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	stored, _ := repo.Read(ctx, api.ID)
	if string(stored.AccessKey) == string(oldKey) {
		t.Fatalf("access key unchanged")
	}
	if len(stored.AccessKey) != pkgcrypto.AccessKeyLen {
		t.Fatalf("rotated key len = %d", len(stored.AccessKey))
	}
}

func TestApiService_Procedures_Lifecycle(t *testing.T) {
	repo := newFakeApis()
	svc := NewApiService(repo)
	ctx := context.Background()

	api, err := svc.Create(ctx, CreateApiInput{Name: "Resource1", Address: "localhost:9001", Password: "p"})
	if err != nil {
		t.Fatalf("create api: %v", err)
	}

	proc, err := svc.CreateProcedure(ctx, api.ID, "ReadData", "reads a data point")
	if err != nil {
		t.Fatalf("create procedure: %v", err)
	}
	if proc.ApiID != api.ID || proc.ID.IsNil() {
		t.Fatalf("procedure not bound: %+v", proc)
	}

	// API with live procedures refuses deletion.
	if err := svc.Delete(ctx, api.ID); !errors.Is(err, errs.ErrHasDependents) {
		t.Fatalf("want ErrHasDependents, got %v", err)
	}
	if err := svc.DeleteProcedure(ctx, proc.ID); err != nil {
		t.Fatalf("delete procedure: %v", err)
	}
	if err := svc.Delete(ctx, api.ID); err != nil {
		t.Fatalf("delete api: %v", err)
	}
}
