package handlers

import (
	"net/http"

	"github.com/username/playerstatements/backend/src/config"
	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/security"
	"github.com/username/playerstatements/backend/src/utils"
)

// APITokenMiddleware guards the statement endpoints with the static bearer
// token the operator scripts carry. Login/session handling lives in the
// surrounding portal, not here.
func APITokenMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !security.ValidAPIToken(config.Cfg.StatementAPIToken, r.Header.Get("Authorization")) {
			logger.L.Warn("Rejected request with invalid API token", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)
			utils.SendJSONError(w, "invalid or missing API token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
