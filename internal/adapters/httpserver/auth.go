package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

const (
	adminCookie        = "admin_token"
	adminTokenTTL      = 6 * time.Hour
	adminIssuer        = "tiendavirtual"
	sessionCustomerKey = "customer_id"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v3/userinfo"
)

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) issueAdminToken(user string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(adminTokenTTL)
	claims := adminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			Issuer:    adminIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Admin.Secret))
	return tok, exp, err
}

func (s *Server) parseAdminToken(raw string) (*adminClaims, error) {
	tok, err := jwt.ParseWithClaims(raw, &adminClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("método de firma inesperado")
		}
		return []byte(s.Admin.Secret), nil
	}, jwt.WithIssuer(adminIssuer))
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*adminClaims)
	if !ok || !tok.Valid || claims.Role != "admin" {
		return nil, errors.New("token inválido")
	}
	return claims, nil
}

// isAdminSession accepts the token either as a bearer header or the cookie.
func (s *Server) isAdminSession(r *http.Request) bool {
	if s.Admin.Secret == "" {
		return false
	}
	raw := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	} else if c, err := r.Cookie(adminCookie); err == nil {
		raw = c.Value
	}
	if raw == "" {
		return false
	}
	_, err := s.parseAdminToken(raw)
	return err == nil
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdminSession(r) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "no autorizado"})
			return
		}
		h(w, r)
	})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.Admin.User == "" || s.Admin.Pass == "" || s.Admin.Secret == "" {
		log.Ctx(r.Context()).Error().Msg("credenciales de admin faltantes")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "admin no configurado"})
		return
	}
	var req struct {
		User string `json:"user"`
		Pass string `json:"pass"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		req.User, req.Pass = r.FormValue("user"), r.FormValue("pass")
	}
	if !secureCompare(req.User, s.Admin.User) || !secureCompare(req.Pass, s.Admin.Pass) {
		log.Ctx(r.Context()).Warn().Str("user", req.User).Msg("login admin rechazado")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "credenciales inválidas"})
		return
	}
	tok, exp, err := s.issueAdminToken(req.User)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "exp": exp.Unix()})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.SecureCookies, SameSite: http.SameSiteStrictMode})
	w.WriteHeader(http.StatusNoContent)
}

// currentCustomer returns nil, nil for anonymous sessions and for sessions
// whose customer was removed.
func (s *Server) currentCustomer(r *http.Request) (*domain.Customer, error) {
	if s.Customers == nil {
		return nil, nil
	}
	var id uuid.UUID
	ok, err := s.Sessions.Get(r.Context(), sessionID(r), sessionCustomerKey, &id)
	if err != nil || !ok || id == uuid.Nil {
		return nil, err
	}
	c, err := s.Customers.FindByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func (s *Server) requireCustomer(w http.ResponseWriter, r *http.Request) (*domain.Customer, bool) {
	c, err := s.currentCustomer(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if c == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "iniciá sesión para ver tus pedidos"})
		return nil, false
	}
	return c, true
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.OAuth == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "oauth no configurado"})
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: state, Path: "/", MaxAge: 300, HttpOnly: true, Secure: s.SecureCookies, SameSite: http.SameSiteLaxMode})
	http.Redirect(w, r, s.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

type googleUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.OAuth == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "oauth no configurado"})
		return
	}
	ctx := r.Context()
	q := r.URL.Query()
	c, _ := r.Cookie("oauth_state")
	if c == nil || c.Value == "" || c.Value != q.Get("state") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "state inválido"})
		return
	}
	tok, err := s.OAuth.Exchange(ctx, q.Get("code"))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("exchange oauth")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "oauth"})
		return
	}
	resp, err := s.OAuth.Client(ctx, tok).Get(googleUserInfoURL)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("userinfo")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "userinfo"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).Error().Int("status", resp.StatusCode).Msg("userinfo")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "userinfo"})
		return
	}
	var info googleUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&info); err != nil || info.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "email"})
		return
	}
	cust, err := s.upsertCustomer(r, info)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Sessions.Set(ctx, sessionID(r), sessionCustomerKey, cust.ID); err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) upsertCustomer(r *http.Request, info googleUser) (*domain.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(info.Email))
	cust, err := s.Customers.FindByEmail(r.Context(), email)
	switch {
	case err == nil:
		return cust, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	cust = &domain.Customer{ID: uuid.New(), Email: email, Name: info.Name}
	if err := s.Customers.Save(r.Context(), cust); err != nil {
		return nil, err
	}
	log.Ctx(r.Context()).Info().Str("customer_id", cust.ID.String()).Msg("cliente nuevo")
	return cust, nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), sessionID(r), sessionCustomerKey); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiMe(w http.ResponseWriter, r *http.Request) {
	c, ok := s.requireCustomer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) apiMyOrders(w http.ResponseWriter, r *http.Request) {
	c, ok := s.requireCustomer(w, r)
	if !ok {
		return
	}
	list, err := s.Orders.ListByCustomer(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) apiMyOrder(w http.ResponseWriter, r *http.Request) {
	c, ok := s.requireCustomer(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.Orders.GetForCustomer(r.Context(), id, c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
