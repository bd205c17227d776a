package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/2beens/healthdash/internal/telemetry/tracing"
	"github.com/2beens/healthdash/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const AdminTokenHeader = "X-HEALTHDASH-TOKEN"

var ErrAdminTokenNotSet = errors.New("admin token hash not set")

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=middleware_test

type tokenChecker interface {
	IsAdminToken(ctx context.Context, token string) (bool, error)
}

// BcryptTokenChecker validates the admin token against its bcrypt hash.
type BcryptTokenChecker struct {
	tokenHash string
}

func NewBcryptTokenChecker(tokenHash string) *BcryptTokenChecker {
	return &BcryptTokenChecker{tokenHash: tokenHash}
}

func (c *BcryptTokenChecker) IsAdminToken(_ context.Context, token string) (bool, error) {
	if c.tokenHash == "" {
		return false, ErrAdminTokenNotSet
	}
	return pkg.CheckPasswordHash(token, c.tokenHash), nil
}

type AuthMiddlewareHandler struct {
	checker   tokenChecker
	protected map[string]bool // "METHOD /path"
}

// NewAuthMiddlewareHandler guards the write routes (import, reload) with the admin token.
// All read routes of the dashboard are public.
func NewAuthMiddlewareHandler(checker tokenChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		checker: checker,
		protected: map[string]bool{
			"POST /api/import": true,
			"POST /api/reload": true,
		},
	}
}

func (h *AuthMiddlewareHandler) isProtected(r *http.Request) bool {
	return h.protected[r.Method+" "+r.URL.Path]
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if !h.isProtected(r) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authToken := r.Header.Get(AdminTokenHeader)
			if authToken == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			isAdmin, err := h.checker.IsAdminToken(ctx, authToken)
			if err != nil {
				log.Errorf("[failed admin token check] => %s: %s", r.URL.Path, err)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "check-token-err")
				span.RecordError(err)
				return
			}
			if !isAdmin {
				reqIp, _ := pkg.ReadUserIP(r)
				log.Warnf("[invalid token] [auth middleware] unauthorized %s from %s", r.URL.Path, reqIp)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-token")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
