package apitest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/carebook/pkg/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Backend messages, verbatim so client code can be tested against them
const (
	DetailBadCredentials  = "No active account found with the given credentials"
	DetailTokenInvalid    = "Given token not valid for any token type"
	DetailRefreshInvalid  = "Token is invalid or expired"
	DetailNoCredentials   = "Authentication credentials were not provided."
	DetailForbidden       = "You do not have permission to perform this action."
	DetailNotFound        = "Not found."
	DetailMessageRequired = "Message is required"
)

type account struct {
	user     types.User
	password string
}

type failure struct {
	status int
	detail string
}

// Server is an in-process fake of the booking backend. It mints real HS256
// JWTs and scopes data the way the production API does.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu           sync.Mutex
	accessTTL    time.Duration
	refreshTTL   time.Duration
	nextID       int64
	accounts     map[int64]*account
	services     map[int64]*types.Service
	appointments map[int64]*types.Appointment
	refreshFail  bool
	refreshDelay time.Duration
	failNext     map[string]failure
	calls        map[string]int
	bodies       map[string][]byte
	queries      map[string]string
}

// New starts a fake backend that is shut down when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:       []byte("apitest-" + uuid.NewString()),
		accessTTL:    5 * time.Minute,
		refreshTTL:   24 * time.Hour,
		accounts:     make(map[int64]*account),
		services:     make(map[int64]*types.Service),
		appointments: make(map[int64]*types.Appointment),
		failNext:     make(map[string]failure),
		calls:        make(map[string]int),
		bodies:       make(map[string][]byte),
		queries:      make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login/", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register/", s.handleRegister)
	mux.HandleFunc("POST /api/auth/refresh/", s.handleRefresh)
	mux.HandleFunc("GET /api/auth/me/", s.authenticated(s.handleMe))
	mux.HandleFunc("GET /api/auth/providers/", s.handleProviders)
	mux.HandleFunc("GET /api/services/", s.handleListServices)
	mux.HandleFunc("POST /api/services/", s.authenticated(s.providerOnly(s.handleCreateService)))
	mux.HandleFunc("PATCH /api/services/{id}/", s.authenticated(s.providerOnly(s.handleUpdateService)))
	mux.HandleFunc("DELETE /api/services/{id}/", s.authenticated(s.providerOnly(s.handleDeleteService)))
	mux.HandleFunc("GET /api/appointments/", s.authenticated(s.handleListAppointments))
	mux.HandleFunc("POST /api/appointments/", s.authenticated(s.handleCreateAppointment))
	mux.HandleFunc("PATCH /api/appointments/{id}/", s.authenticated(s.handleUpdateAppointment))
	mux.HandleFunc("POST /api/chatbot/chat/", s.handleChat)

	s.srv = httptest.NewServer(s.record(mux))
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the API base URL, including the /api prefix
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// SetAccessTTL changes the lifetime of access tokens issued from now on
func (s *Server) SetAccessTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTTL = d
}

// FailRefresh makes every refresh request fail with 401
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFail = fail
}

// SetRefreshDelay slows down refresh responses
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// FailNext makes the next request matching route (e.g. "PATCH /appointments/{id}/")
// fail with status and detail
func (s *Server) FailNext(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[route] = failure{status: status, detail: detail}
}

// Calls returns how many requests hit route, e.g. "POST /appointments/"
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastBody returns the last request body sent to route
func (s *Server) LastBody(route string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[route]
}

// LastQuery returns the raw query string of the last request to route
func (s *Server) LastQuery(route string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[route]
}

// AddUser creates an account and returns its stored profile
func (s *Server) AddUser(u types.User, password string) *types.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	u.ID = s.nextID
	if u.Role == types.RoleProvider && u.ProviderProfile == nil {
		u.ProviderProfile = &types.ProviderProfile{}
	}
	s.accounts[u.ID] = &account{user: u, password: password}

	out := u
	return &out
}

// AddService stores svc and returns it with its assigned id
func (s *Server) AddService(svc types.Service) *types.Service {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	svc.ID = s.nextID
	s.services[svc.ID] = &svc

	out := svc
	return &out
}

// AddAppointment stores a and returns it with its assigned id. Provider is
// taken from the service when unset and status defaults to PENDING.
func (s *Server) AddAppointment(a types.Appointment) *types.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	a.ID = s.nextID
	if a.Provider == 0 {
		if svc, ok := s.services[a.Service]; ok {
			a.Provider = svc.Provider
		}
	}
	if a.Status == "" {
		a.Status = types.StatusPending
	}
	s.appointments[a.ID] = &a
	return s.detailed(&a)
}

// Appointment returns the current server-side copy of an appointment
func (s *Server) Appointment(id int64) (*types.Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, false
	}
	return s.detailed(a), true
}

// Service returns the current server-side copy of a service
func (s *Server) Service(id int64) (*types.Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, false
	}
	out := *svc
	return &out, true
}

// AppointmentCount returns the number of stored appointments
func (s *Server) AppointmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appointments)
}

// IssueTokens mints a token pair for userID as a login would
func (s *Server) IssueTokens(userID int64) types.Tokens {
	s.mu.Lock()
	accessTTL, refreshTTL := s.accessTTL, s.refreshTTL
	s.mu.Unlock()

	return types.Tokens{
		Access:  s.sign(userID, "access", accessTTL),
		Refresh: s.sign(userID, "refresh", refreshTTL),
	}
}

// ExpiredAccess mints an access token for userID that is already expired
func (s *Server) ExpiredAccess(userID int64) string {
	return s.sign(userID, "access", -time.Minute)
}

func (s *Server) sign(userID int64, tokenType string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    userID,
		"token_type": tokenType,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"jti":        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return token
}

// verify returns the user id of a valid token of the given type
func (s *Server) verify(raw, tokenType string) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	if claims["token_type"] != tokenType {
		return 0, errors.New("wrong token type")
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return 0, errors.New("missing user_id")
	}
	return int64(id), nil
}

// Middleware

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := next.(*http.ServeMux).Handler(r)
		route := strings.Replace(pattern, " /api/", " /", 1)

		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls[route]++
		s.bodies[route] = body
		s.queries[route] = r.URL.RawQuery
		f, fail := s.failNext[route]
		delete(s.failNext, route)
		s.mu.Unlock()

		if fail {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, user *types.User)

func (s *Server) authenticated(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeDetail(w, http.StatusUnauthorized, DetailNoCredentials)
			return
		}

		id, err := s.verify(strings.TrimPrefix(header, "Bearer "), "access")
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, DetailTokenInvalid)
			return
		}

		s.mu.Lock()
		acct, ok := s.accounts[id]
		var user types.User
		if ok {
			user = acct.user
		}
		s.mu.Unlock()

		if !ok {
			writeDetail(w, http.StatusUnauthorized, DetailTokenInvalid)
			return
		}
		next(w, r, &user)
	}
}

func (s *Server) providerOnly(next userHandler) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user *types.User) {
		if user.Role != types.RoleProvider {
			writeDetail(w, http.StatusForbidden, DetailForbidden)
			return
		}
		next(w, r, user)
	}
}

// Auth handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	s.mu.Lock()
	var id int64
	for _, acct := range s.accounts {
		if strings.EqualFold(acct.user.Email, creds.Email) && acct.password == creds.Password {
			id = acct.user.ID
			break
		}
	}
	s.mu.Unlock()

	if id == 0 {
		writeDetail(w, http.StatusUnauthorized, DetailBadCredentials)
		return
	}
	writeJSON(w, http.StatusOK, s.IssueTokens(id))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg types.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	fieldErrs := map[string][]string{}
	if reg.Email == "" {
		fieldErrs["email"] = []string{"This field is required."}
	}
	if reg.Password == "" {
		fieldErrs["password"] = []string{"This field is required."}
	}
	if reg.Role == "" {
		reg.Role = types.RoleClient
	}
	if !reg.Role.Valid() {
		fieldErrs["role"] = []string{fmt.Sprintf("%q is not a valid choice.", reg.Role)}
	}

	s.mu.Lock()
	for _, acct := range s.accounts {
		if strings.EqualFold(acct.user.Email, reg.Email) {
			fieldErrs["email"] = []string{"user with this email already exists."}
		}
	}
	s.mu.Unlock()

	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	user := s.AddUser(types.User{
		Email:     reg.Email,
		Role:      reg.Role,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Phone:     reg.Phone,
	}, reg.Password)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	fail, delay := s.refreshFail, s.refreshDelay
	s.mu.Unlock()

	time.Sleep(delay)

	if fail {
		writeDetail(w, http.StatusUnauthorized, DetailRefreshInvalid)
		return
	}
	id, err := s.verify(body.Refresh, "refresh")
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, DetailRefreshInvalid)
		return
	}

	s.mu.Lock()
	ttl := s.accessTTL
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"access": s.sign(id, "access", ttl)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user *types.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	providers := make([]types.User, 0)
	for _, id := range s.sortedAccountIDs() {
		if u := s.accounts[id].user; u.Role == types.RoleProvider {
			providers = append(providers, u)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, providers)
}

// Service handlers

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	var providerID int64
	if p := r.URL.Query().Get("provider"); p != "" {
		providerID, _ = strconv.ParseInt(p, 10, 64)
	}

	s.mu.Lock()
	out := make([]types.Service, 0)
	for _, id := range sortedIDs(s.services) {
		svc := s.services[id]
		if providerID != 0 && svc.Provider != providerID {
			continue
		}
		out = append(out, *svc)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request, user *types.User) {
	var in types.ServiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	fieldErrs := map[string][]string{}
	if in.Name == "" {
		fieldErrs["name"] = []string{"This field is required."}
	}
	if in.Duration <= 0 {
		fieldErrs["duration"] = []string{"Ensure this value is greater than or equal to 1."}
	}
	if in.Price.LessThan(decimal.Zero) {
		fieldErrs["price"] = []string{"Ensure this value is greater than or equal to 0."}
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	svc := s.AddService(types.Service{
		Provider:    user.ID,
		Name:        in.Name,
		Description: in.Description,
		Duration:    in.Duration,
		Price:       in.Price,
		IsActive:    true,
	})
	writeJSON(w, http.StatusCreated, svc)
}

func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request, user *types.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var patch types.ServicePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	s.mu.Lock()
	svc, found := s.services[id]
	if found {
		if patch.Name != nil {
			svc.Name = *patch.Name
		}
		if patch.Description != nil {
			svc.Description = *patch.Description
		}
		if patch.Duration != nil {
			svc.Duration = *patch.Duration
		}
		if patch.Price != nil {
			svc.Price = *patch.Price
		}
		if patch.IsActive != nil {
			svc.IsActive = *patch.IsActive
		}
	}
	var out types.Service
	if found {
		out = *svc
	}
	s.mu.Unlock()

	if !found {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request, user *types.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	_, found := s.services[id]
	delete(s.services, id)
	s.mu.Unlock()

	if !found {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Appointment handlers

func (s *Server) visible(a *types.Appointment, user *types.User) bool {
	if user.Role == types.RoleProvider {
		return a.Provider == user.ID
	}
	return a.Client == user.ID
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request, user *types.User) {
	s.mu.Lock()
	out := make([]*types.Appointment, 0)
	for _, id := range sortedIDs(s.appointments) {
		if a := s.appointments[id]; s.visible(a, user) {
			out = append(out, s.detailed(a))
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request, user *types.User) {
	var in types.NewAppointment
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	fieldErrs := map[string][]string{}
	if _, err := time.Parse(time.DateOnly, in.Date); err != nil {
		fieldErrs["date"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
	}
	if _, err := time.Parse(time.TimeOnly, in.TimeSlot); err != nil {
		fieldErrs["time_slot"] = []string{"Time has wrong format. Use one of these formats instead: hh:mm[:ss[.uuuuuu]]."}
	}

	s.mu.Lock()
	var svc types.Service
	stored, found := s.services[in.Service]
	if found {
		svc = *stored
	}
	s.mu.Unlock()
	if !found {
		fieldErrs["service"] = []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", in.Service)}
	}

	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	a := s.AddAppointment(types.Appointment{
		Client:   user.ID,
		Provider: svc.Provider,
		Service:  svc.ID,
		Date:     in.Date,
		TimeSlot: in.TimeSlot,
		Status:   types.StatusPending,
	})
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAppointment(w http.ResponseWriter, r *http.Request, user *types.User) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in types.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}
	if !in.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"status": {fmt.Sprintf("%q is not a valid choice.", in.Status)},
		})
		return
	}

	s.mu.Lock()
	a, found := s.appointments[id]
	if found && !s.visible(a, user) {
		found = false
	}
	var out *types.Appointment
	if found {
		a.Status = in.Status
		out = s.detailed(a)
	}
	s.mu.Unlock()

	if !found {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Chatbot

var specializations = []struct {
	term, name string
}{
	{"cardiologist", "Cardiology"},
	{"cardiology", "Cardiology"},
	{"heart", "Cardiology"},
	{"dermatologist", "Dermatology"},
	{"skin", "Dermatology"},
	{"neurologist", "Neurology"},
	{"pediatrician", "Pediatrics"},
	{"children", "Pediatrics"},
	{"dentist", "Dentistry"},
	{"dental", "Dentistry"},
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	msg := strings.ToLower(in.Message)
	if msg == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": DetailMessageRequired})
		return
	}

	var wanted string
	for _, sp := range specializations {
		if strings.Contains(msg, sp.term) {
			wanted = sp.name
			break
		}
	}

	reply := types.ChatReply{Doctors: []types.DoctorSuggestion{}}
	if wanted == "" {
		reply.Message = "I'm sorry, I didn't verify that specialization. Try asking for 'Cardiologist', 'Dermatologist', 'Pediatrician', etc."
		writeJSON(w, http.StatusOK, reply)
		return
	}

	s.mu.Lock()
	for _, id := range s.sortedAccountIDs() {
		u := s.accounts[id].user
		if u.ProviderProfile == nil || !strings.Contains(strings.ToLower(u.ProviderProfile.Specialization), strings.ToLower(wanted)) {
			continue
		}
		reply.Doctors = append(reply.Doctors, types.DoctorSuggestion{
			ID:             u.ID,
			Name:           "Dr. " + u.LastName,
			Specialization: u.ProviderProfile.Specialization,
		})
	}
	s.mu.Unlock()

	if len(reply.Doctors) == 0 {
		reply.Message = fmt.Sprintf("I understood you are looking for %s, but I couldn't find any doctors with that specialization right now.", wanted)
	} else {
		names := make([]string, len(reply.Doctors))
		for i, d := range reply.Doctors {
			names[i] = fmt.Sprintf("%s (%s)", d.Name, d.Specialization)
		}
		reply.Message = fmt.Sprintf("I found the following %s specialists for you: %s.", wanted, strings.Join(names, ", "))
	}
	writeJSON(w, http.StatusOK, reply)
}

// Helpers

// detailed returns a copy of a with nested details filled in. Caller holds s.mu.
func (s *Server) detailed(a *types.Appointment) *types.Appointment {
	out := *a
	if svc, ok := s.services[a.Service]; ok {
		cp := *svc
		out.ServiceDetails = &cp
	}
	if acct, ok := s.accounts[a.Client]; ok {
		cp := acct.user
		out.ClientDetails = &cp
	}
	if acct, ok := s.accounts[a.Provider]; ok {
		cp := acct.user
		out.ProviderDetails = &cp
	}
	return &out
}

func (s *Server) sortedAccountIDs() []int64 {
	return sortedIDs(s.accounts)
}

func sortedIDs[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
