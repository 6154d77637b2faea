package service

import (
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/logging"
)

// DefaultAdminRole 是允许触发批处理的默认角色。
const DefaultAdminRole = "admin"

// AdminAuth 是管理接口的 HS256 bearer token 校验配置。
// Secret 为空时管理接口整体关闭，所有请求返回 403。
type AdminAuth struct {
	Secret []byte
	Role   string
}

// RequireAdmin 校验 Authorization: Bearer <jwt>：
// 缺少 token、签名或有效期不合法返回 401；role / roles 声明里没有所需角色返回 403。
func RequireAdmin(auth AdminAuth) func(http.Handler) http.Handler {
	role := auth.Role
	if role == "" {
		role = DefaultAdminRole
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(auth.Secret) == 0 {
				writeError(w, http.StatusForbidden, core.ErrorCodeForbidden, "admin endpoints are disabled")
				return
			}
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, core.ErrorCodeUnauthorized, "bearer token required")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return auth.Secret, nil
			})
			if err != nil || !token.Valid {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("admin token rejected")
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, core.ErrorCodeUnauthorized, "invalid token")
				return
			}
			if !hasRole(claims, role) {
				writeError(w, http.StatusForbidden, core.ErrorCodeForbidden, "role "+role+" required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(claims jwt.MapClaims, role string) bool {
	if v, ok := claims["role"].(string); ok && v == role {
		return true
	}
	roles, _ := claims["roles"].([]any)
	return slices.ContainsFunc(roles, func(v any) bool {
		s, ok := v.(string)
		return ok && s == role
	})
}
