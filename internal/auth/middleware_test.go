package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/auth"
	"parkingapp/internal/db"
)

const secret = "test-secret"

func protected(t *testing.T) http.Handler {
	return auth.Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.ActorFrom(r.Context())
		require.True(t, ok)
		w.Write([]byte(actor.ID + "/" + string(actor.Role)))
	}))
}

func call(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareSetsActor(t *testing.T) {
	token, err := auth.SignToken(secret, db.Actor{ID: "u-owner", Role: db.RoleParking}, time.Hour)
	require.NoError(t, err)

	rec := call(protected(t), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-owner/PARKING", rec.Body.String())
}

func TestMiddlewareRejects(t *testing.T) {
	expired, err := auth.SignToken(secret, db.Actor{ID: "u1", Role: db.RoleClient}, -time.Minute)
	require.NoError(t, err)
	forged, err := auth.SignToken("other-secret", db.Actor{ID: "u1", Role: db.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	badRole, err := auth.SignToken(secret, db.Actor{ID: "u1", Role: "ROOT"}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "role": "ADMIN"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"garbage":    "Bearer not-a-jwt",
		"expired":    "Bearer " + expired,
		"forged":     "Bearer " + forged,
		"bad role":   "Bearer " + badRole,
		"alg none":   "Bearer " + none,
	} {
		t.Run(name, func(t *testing.T) {
			rec := call(protected(t), header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"UNAUTHORIZED","message":"missing or invalid credentials"}`, rec.Body.String())
		})
	}
}
