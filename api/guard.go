package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kushalk47/aarogya-api/databases"
)

// Guard authenticates patients and doctors. Credentials are checked with
// basic auth against both profile collections; issued bearer tokens live in
// an in-memory cache until they expire or are revoked.
type Guard struct {
	Patients databases.PatientDatabase
	Doctors  databases.DoctorDatabase

	authenticator auth.Authenticator
}

// NewGuard sets up go-guardian with a basic strategy and a cached bearer
// strategy whose tokens expire after ttl
func NewGuard(patients databases.PatientDatabase, doctors databases.DoctorDatabase, ttl time.Duration) *Guard {
	g := &Guard{Patients: patients, Doctors: doctors}
	cache := store.NewFIFO(context.Background(), ttl)
	g.authenticator = auth.New()
	g.authenticator.EnableStrategy(basic.StrategyKey, basic.New(g.ValidateUser, cache))
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, bearer.New(bearer.NoOpAuthenticate, cache))
	return g
}

// Middleware rejects unauthenticated requests and stores the principal on the
// request context
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Warnw("unauthorized",
				"url", r.URL.String())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		p := principalFromInfo(user)
		zap.S().Debugw("user authenticated", "id", p.ID, "user_type", p.UserType)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// CreateToken issues a bearer token for the principal that passed basic auth
func (g *Guard) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "basic auth failed", http.StatusUnauthorized)
		return
	}

	token := uuid.New().String()
	info := auth.NewDefaultUser(p.Email, p.ID, []string{p.UserType}, nil)
	tokenStrategy := g.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Append(tokenStrategy, token, info, r); err != nil {
		http.Error(w, "failed to store token", http.StatusInternalServerError)
		return
	}

	b, err := json.Marshal(map[string]string{
		"token":     token,
		"_id":       p.ID,
		"user_type": p.UserType,
	})
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(b)
}

// RevokeToken revokes the bearer token used on the request
func (g *Guard) RevokeToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusBadRequest)
		return
	}
	tokenStrategy := g.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Revoke(tokenStrategy, token, r); err != nil {
		http.Error(w, "failed to revoke token", http.StatusInternalServerError)
		return
	}
	w.Write([]byte(fmt.Sprintf(`{"revoked token": "%s"}`, token)))
}

// ValidateUser checks email and password against patients first, then doctors
func (g *Guard) ValidateUser(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	accounts := []struct {
		userType string
		find     func(context.Context, interface{}) (bson.M, error)
	}{
		{UserTypePatient, func(ctx context.Context, f interface{}) (bson.M, error) { return g.Patients.FindOne(ctx, f) }},
		{UserTypeDoctor, func(ctx context.Context, f interface{}) (bson.M, error) { return g.Doctors.FindOne(ctx, f) }},
	}
	for _, a := range accounts {
		doc, err := a.find(ctx, bson.M{"email": email})
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", a.userType, err)
		}
		hash, _ := doc["password"].(string)
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			return nil, fmt.Errorf("invalid credentials")
		}
		return auth.NewDefaultUser(email, documentID(doc), []string{a.userType}, nil), nil
	}
	return nil, fmt.Errorf("no matching email found")
}

func principalFromInfo(info auth.Info) Principal {
	p := Principal{ID: info.ID(), Email: info.UserName()}
	if groups := info.Groups(); len(groups) > 0 {
		p.UserType = groups[0]
	}
	return p
}

func documentID(doc bson.M) string {
	switch id := doc["_id"].(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	return ""
}
