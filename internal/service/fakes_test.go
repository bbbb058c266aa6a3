package service

import (
	"context"
	"time"

	"github.com/gatewarden/authdb/internal/errs"
	"github.com/gatewarden/authdb/internal/limiter"
	"github.com/gatewarden/authdb/internal/model"
	"github.com/gatewarden/authdb/internal/repository"
	"github.com/gofrs/uuid/v5"
)

/************ fake api repository ************/

type fakeApis struct {
	byID   map[uuid.UUID]*model.Api
	procs  map[uuid.UUID]*model.Procedure
	lastUp repository.ApiUpdate

	createErr error
	updateErr error
}

var _ repository.ApiRepository = (*fakeApis)(nil)

func newFakeApis() *fakeApis {
	return &fakeApis{byID: map[uuid.UUID]*model.Api{}, procs: map[uuid.UUID]*model.Procedure{}}
}

func (f *fakeApis) Create(_ context.Context, api *model.Api) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, a := range f.byID {
		if a.Name == api.Name {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *api
	f.byID[api.ID] = &cpy
	return nil
}

func (f *fakeApis) Read(_ context.Context, id uuid.UUID) (*model.Api, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeApis) ReadByName(_ context.Context, name string) (*model.Api, error) {
	for _, a := range f.byID {
		if a.Name == name {
			c := *a
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeApis) ListByCategory(_ context.Context, category string) ([]model.Api, error) {
	var out []model.Api
	for _, a := range f.byID {
		if a.Category == category {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApis) Update(_ context.Context, id uuid.UUID, up repository.ApiUpdate) error {
	f.lastUp = up
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if up.Name != nil {
		a.Name = *up.Name
	}
	if up.Password != nil {
		a.Password = *up.Password
	}
	if up.PublicKey != nil {
		a.PublicKey = up.PublicKey
	}
	if up.PrivateKey != nil {
		a.PrivateKey = up.PrivateKey
	}
	if up.AccessKey != nil {
		a.AccessKey = up.AccessKey
	}
	return nil
}

func (f *fakeApis) Delete(_ context.Context, id uuid.UUID) error {
	for _, p := range f.procs {
		if p.ApiID == id {
			return errs.ErrHasDependents
		}
	}
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeApis) CreateProcedure(_ context.Context, proc *model.Procedure) error {
	if _, ok := f.byID[proc.ApiID]; !ok {
		return errs.ErrNotFound
	}
	cpy := *proc
	f.procs[proc.ID] = &cpy
	return nil
}

func (f *fakeApis) ReadProcedure(_ context.Context, id uuid.UUID) (*model.Procedure, error) {
	p, ok := f.procs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeApis) ReadProcedureByName(_ context.Context, apiID uuid.UUID, name string) (*model.Procedure, error) {
	for _, p := range f.procs {
		if p.ApiID == apiID && p.Name == name {
			c := *p
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeApis) ListProcedureByApi(_ context.Context, apiID uuid.UUID) ([]model.Procedure, error) {
	var out []model.Procedure
	for _, p := range f.procs {
		if p.ApiID == apiID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeApis) UpdateProcedure(_ context.Context, id uuid.UUID, up repository.ProcedureUpdate) error {
	p, ok := f.procs[id]
	if !ok {
		return errs.ErrNotFound
	}
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.Description != nil {
		p.Description = *up.Description
	}
	return nil
}

func (f *fakeApis) DeleteProcedure(_ context.Context, id uuid.UUID) error {
	if _, ok := f.procs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.procs, id)
	return nil
}

/************ fake role repository ************/

type fakeRoles struct {
	byID      map[uuid.UUID]*model.Role
	access    map[uuid.UUID][]uuid.UUID // role -> granted procedures
	procApi   map[uuid.UUID]uuid.UUID   // procedure -> owning api
	userRoles map[uuid.UUID][]uuid.UUID // user -> assigned roles
	lastUp    repository.RoleUpdate
}

var _ repository.RoleRepository = (*fakeRoles)(nil)

func newFakeRoles() *fakeRoles {
	return &fakeRoles{
		byID:      map[uuid.UUID]*model.Role{},
		access:    map[uuid.UUID][]uuid.UUID{},
		procApi:   map[uuid.UUID]uuid.UUID{},
		userRoles: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeRoles) Create(_ context.Context, role *model.Role) error {
	for _, r := range f.byID {
		if r.ApiID == role.ApiID && r.Name == role.Name {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *role
	f.byID[role.ID] = &cpy
	return nil
}

func (f *fakeRoles) Read(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	c.Procedures = append([]uuid.UUID(nil), f.access[id]...)
	return &c, nil
}

func (f *fakeRoles) ReadByName(_ context.Context, apiID uuid.UUID, name string) (*model.Role, error) {
	for id, r := range f.byID {
		if r.ApiID == apiID && r.Name == name {
			c := *r
			c.Procedures = append([]uuid.UUID(nil), f.access[id]...)
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeRoles) ListByApi(_ context.Context, apiID uuid.UUID) ([]model.Role, error) {
	var out []model.Role
	for _, r := range f.byID {
		if r.ApiID == apiID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoles) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Role, error) {
	var out []model.Role
	for _, id := range f.userRoles[userID] {
		if r, ok := f.byID[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoles) Update(_ context.Context, id uuid.UUID, up repository.RoleUpdate) error {
	f.lastUp = up
	r, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if up.Name != nil {
		r.Name = *up.Name
	}
	if up.Multi != nil {
		r.Multi = *up.Multi
	}
	if up.IPLock != nil {
		r.IPLock = *up.IPLock
	}
	if up.AccessKey != nil {
		r.AccessKey = up.AccessKey
	}
	return nil
}

func (f *fakeRoles) Delete(_ context.Context, id uuid.UUID) error {
	if len(f.access[id]) > 0 {
		return errs.ErrHasDependents
	}
	for _, roles := range f.userRoles {
		for _, rid := range roles {
			if rid == id {
				return errs.ErrHasDependents
			}
		}
	}
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeRoles) AddAccess(_ context.Context, roleID, procedureID uuid.UUID) error {
	r, ok := f.byID[roleID]
	if !ok {
		return errs.ErrNotFound
	}
	apiID, ok := f.procApi[procedureID]
	if !ok {
		return errs.ErrNotFound
	}
	if r.ApiID != apiID {
		return errs.ErrInvalidGrant
	}
	for _, pid := range f.access[roleID] {
		if pid == procedureID {
			return errs.ErrAlreadyExists
		}
	}
	f.access[roleID] = append(f.access[roleID], procedureID)
	return nil
}

func (f *fakeRoles) RemoveAccess(_ context.Context, roleID, procedureID uuid.UUID) error {
	granted := f.access[roleID]
	for i, pid := range granted {
		if pid == procedureID {
			f.access[roleID] = append(granted[:i:i], granted[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRoles) ListAccess(_ context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), f.access[roleID]...), nil
}

func (f *fakeRoles) IsAuthorized(_ context.Context, userID, procedureID uuid.UUID) (bool, error) {
	for _, rid := range f.userRoles[userID] {
		r, ok := f.byID[rid]
		if !ok {
			continue
		}
		for _, pid := range f.access[rid] {
			if pid == procedureID && f.procApi[pid] == r.ApiID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeRoles) assign(userID, roleID uuid.UUID) {
	f.userRoles[userID] = append(f.userRoles[userID], roleID)
}

func (f *fakeRoles) unassign(userID, roleID uuid.UUID) {
	roles := f.userRoles[userID]
	for i, rid := range roles {
		if rid == roleID {
			f.userRoles[userID] = append(roles[:i:i], roles[i+1:]...)
			return
		}
	}
}

/************ fake user repository ************/

type fakeUsers struct {
	byID map[uuid.UUID]*model.User

	createErr error
	readErr   error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uuid.UUID]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if x.Name == u.Name {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) Read(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) ReadByName(_ context.Context, name string) (*model.User, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	for _, u := range f.byID {
		if u.Name == name {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) ListByRole(_ context.Context, roleID uuid.UUID) ([]model.User, error) {
	var out []model.User
	for _, u := range f.byID {
		for _, ur := range u.Roles {
			if ur.RoleID == roleID {
				out = append(out, *u)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, id uuid.UUID, up repository.UserUpdate) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if up.Name != nil {
		u.Name = *up.Name
	}
	if up.Password != nil {
		u.Password = *up.Password
	}
	if up.Email != nil {
		u.Email = *up.Email
	}
	if up.Phone != nil {
		u.Phone = *up.Phone
	}
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if len(u.Roles) > 0 {
		return errs.ErrHasDependents
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) AddRole(_ context.Context, userID, roleID uuid.UUID) error {
	u, ok := f.byID[userID]
	if !ok {
		return errs.ErrNotFound
	}
	for _, ur := range u.Roles {
		if ur.RoleID == roleID {
			return errs.ErrAlreadyExists
		}
	}
	u.Roles = append(u.Roles, model.UserRole{RoleID: roleID})
	return nil
}

func (f *fakeUsers) RemoveRole(_ context.Context, userID, roleID uuid.UUID) error {
	u, ok := f.byID[userID]
	if !ok {
		return nil
	}
	for i, ur := range u.Roles {
		if ur.RoleID == roleID {
			u.Roles = append(u.Roles[:i:i], u.Roles[i+1:]...)
			return nil
		}
	}
	return nil
}

/************ fake token repository ************/

type fakeTokens struct {
	rows []model.Token

	insertErr error
}

var _ repository.TokenRepository = (*fakeTokens)(nil)

func (f *fakeTokens) Insert(_ context.Context, tokens []model.Token) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for i := range tokens {
		for j := range f.rows {
			if f.rows[j].AccessID == tokens[i].AccessID || f.rows[j].RefreshToken == tokens[i].RefreshToken {
				return errs.ErrAlreadyExists
			}
		}
	}
	f.rows = append(f.rows, tokens...)
	return nil
}

func (f *fakeTokens) ReadByAccess(_ context.Context, accessID int32) (*model.Token, error) {
	for i := range f.rows {
		if f.rows[i].AccessID == accessID {
			c := f.rows[i]
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeTokens) ReadByRefresh(_ context.Context, refreshToken string) (*model.Token, error) {
	for i := range f.rows {
		if f.rows[i].RefreshToken == refreshToken {
			c := f.rows[i]
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeTokens) ListByAuth(_ context.Context, authToken string) ([]model.Token, error) {
	var out []model.Token
	for i := range f.rows {
		if f.rows[i].AuthToken == authToken {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeTokens) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Token, error) {
	var out []model.Token
	for i := range f.rows {
		if f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeTokens) CountActive(_ context.Context, userID, roleID uuid.UUID, now time.Time) (int, error) {
	n := 0
	for i := range f.rows {
		if f.rows[i].UserID == userID && f.rows[i].RoleID == roleID && f.rows[i].Expire.After(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) match(sel repository.TokenSelector, t *model.Token) bool {
	switch {
	case sel.AccessID != nil:
		return t.AccessID == *sel.AccessID
	case sel.AuthToken != nil:
		return t.AuthToken == *sel.AuthToken
	case sel.UserID != nil:
		return t.UserID == *sel.UserID
	}
	return false
}

func (f *fakeTokens) Update(_ context.Context, sel repository.TokenSelector, up repository.TokenUpdate) (int64, error) {
	var n int64
	for i := range f.rows {
		if !f.match(sel, &f.rows[i]) {
			continue
		}
		if up.AuthToken != nil {
			f.rows[i].AuthToken = *up.AuthToken
		}
		if up.Expire != nil {
			f.rows[i].Expire = *up.Expire
		}
		if up.IP != nil {
			f.rows[i].IP = up.IP
		}
		n++
	}
	return n, nil
}

// refreshTaken mirrors the store-wide uniqueness of refresh secrets.
func (f *fakeTokens) refreshTaken(secret string, exceptAccessID int32) bool {
	for i := range f.rows {
		if f.rows[i].RefreshToken == secret && f.rows[i].AccessID != exceptAccessID {
			return true
		}
	}
	return false
}

func (f *fakeTokens) Rotate(_ context.Context, rotations []repository.TokenRotation, up repository.TokenUpdate) (int64, error) {
	var n int64
	for _, rot := range rotations {
		if f.refreshTaken(rot.RefreshToken, rot.AccessID) {
			return 0, errs.ErrAlreadyExists
		}
		for i := range f.rows {
			if f.rows[i].AccessID != rot.AccessID {
				continue
			}
			f.rows[i].RefreshToken = rot.RefreshToken
			if up.AuthToken != nil {
				f.rows[i].AuthToken = *up.AuthToken
			}
			if up.Expire != nil {
				f.rows[i].Expire = *up.Expire
			}
			if up.IP != nil {
				f.rows[i].IP = up.IP
			}
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) Delete(_ context.Context, sel repository.TokenSelector) (int64, error) {
	var kept []model.Token
	var n int64
	for i := range f.rows {
		if f.match(sel, &f.rows[i]) {
			n++
			continue
		}
		kept = append(kept, f.rows[i])
	}
	f.rows = kept
	return n, nil
}

/************ fake access id allocator ************/

type fakeAllocator struct {
	next int32
	err  error
}

var _ repository.AccessIDAllocator = (*fakeAllocator)(nil)

func (f *fakeAllocator) NextN(_ context.Context, n int) ([]int32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		f.next++
		out = append(out, f.next)
	}
	return out, nil
}

/************ fake limiter ************/

type fakeLimiter struct {
	allowed        bool
	blockOnFailure bool

	failures  int
	successes int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (f *fakeLimiter) Allow(_ context.Context, _ string, _ []byte) (bool, time.Duration, error) {
	return f.allowed, 0, nil
}

func (f *fakeLimiter) Success(_ context.Context, _ string, _ []byte) error {
	f.successes++
	return nil
}

func (f *fakeLimiter) Failure(_ context.Context, _ string, _ []byte) (bool, time.Duration, error) {
	f.failures++
	return f.blockOnFailure, 0, nil
}

/************ fake profile repository ************/

type fakeProfiles struct {
	nextID   int32
	roleProf map[int32]*model.RoleProfile
	userProf map[int32]*model.UserProfile

	swaps int
}

var _ repository.ProfileRepository = (*fakeProfiles)(nil)

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{roleProf: map[int32]*model.RoleProfile{}, userProf: map[int32]*model.UserProfile{}}
}

func (f *fakeProfiles) CreateRoleProfile(_ context.Context, p *model.RoleProfile) (int32, error) {
	f.nextID++
	c := *p
	c.ID = f.nextID
	f.roleProf[c.ID] = &c
	return c.ID, nil
}

func (f *fakeProfiles) ReadRoleProfile(_ context.Context, id int32) (*model.RoleProfile, error) {
	p, ok := f.roleProf[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProfiles) ListRoleProfileByRole(_ context.Context, roleID uuid.UUID) ([]model.RoleProfile, error) {
	var out []model.RoleProfile
	for _, p := range f.roleProf {
		if p.RoleID == roleID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProfiles) UpdateRoleProfile(_ context.Context, id int32, up repository.RoleProfileUpdate) error {
	p, ok := f.roleProf[id]
	if !ok {
		return errs.ErrNotFound
	}
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.Type != nil {
		p.Type = *up.Type
	}
	if up.Mode != nil {
		p.Mode = *up.Mode
	}
	return nil
}

func (f *fakeProfiles) DeleteRoleProfile(_ context.Context, id int32) error {
	if _, ok := f.roleProf[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.roleProf, id)
	return nil
}

func (f *fakeProfiles) CreateUserProfile(_ context.Context, p *model.UserProfile) (int32, error) {
	f.nextID++
	c := *p
	c.ID = f.nextID
	var maxOrder int16 = -1
	for _, x := range f.userProf {
		if x.UserID == c.UserID && x.Name == c.Name && x.Order > maxOrder {
			maxOrder = x.Order
		}
	}
	c.Order = maxOrder + 1
	f.userProf[c.ID] = &c
	return c.ID, nil
}

func (f *fakeProfiles) ReadUserProfile(_ context.Context, id int32) (*model.UserProfile, error) {
	p, ok := f.userProf[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProfiles) ListUserProfileByUser(_ context.Context, userID uuid.UUID) ([]model.UserProfile, error) {
	var out []model.UserProfile
	for _, p := range f.userProf {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProfiles) UpdateUserProfile(_ context.Context, id int32, up repository.UserProfileUpdate) error {
	p, ok := f.userProf[id]
	if !ok {
		return errs.ErrNotFound
	}
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.Value != nil {
		p.Value = *up.Value
	}
	return nil
}

func (f *fakeProfiles) DeleteUserProfile(_ context.Context, id int32) error {
	if _, ok := f.userProf[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.userProf, id)
	return nil
}

func (f *fakeProfiles) SwapUserProfile(_ context.Context, userID uuid.UUID, name string, orderA, orderB int16) error {
	f.swaps++
	var a, b *model.UserProfile
	for _, p := range f.userProf {
		if p.UserID != userID || p.Name != name {
			continue
		}
		switch p.Order {
		case orderA:
			a = p
		case orderB:
			b = p
		}
	}
	if a == nil && b == nil {
		return errs.ErrNotFound
	}
	if a != nil {
		a.Order = orderB
	}
	if b != nil {
		b.Order = orderA
	}
	return nil
}
