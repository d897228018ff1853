package controllers

import (
	"net/http"

	"github.com/aspida-health/aspida-backend/api/middleware"
	"github.com/aspida-health/aspida-backend/api/responses"
	"github.com/aspida-health/aspida-backend/api/validators"
	"github.com/aspida-health/aspida-backend/internal/accounts"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/aspida-health/aspida-backend/pkg/logger"
	"github.com/aspida-health/aspida-backend/pkg/types"
)

func authBody(result *accounts.AuthResult, msg string) types.AuthResponse {
	return types.AuthResponse{
		Msg: msg,
		Token: types.TokenPair{
			Access:  result.AccessToken,
			Refresh: result.RefreshToken,
		},
	}
}

// AuthRequestRegistrationOTP sends a verification code to the address or
// number the caller wants to register with.
func AuthRequestRegistrationOTP(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req accounts.RequestRegistrationOTPRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.RequestRegistrationOTP(ctx, req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.MessageResponse{Msg: "verification code sent"})
	}
}

// AuthRegister creates the account once the code checks out and signs the
// new user straight in.
func AuthRegister(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req accounts.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Register(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, authBody(result, "registration successful"))
	}
}

func AuthLogin(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req accounts.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Login(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, authBody(result, "login successful"))
	}
}

func AuthRefresh(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req accounts.RefreshRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Refresh(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, authBody(result, "token refreshed"))
	}
}

// AuthVerify reports whether the supplied access token is still good.
func AuthVerify(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req accounts.VerifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.VerifyToken(ctx, req.Access); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.MessageResponse{Msg: "token is valid"})
	}
}

func AuthLogout(svc *accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		accessID := middleware.AccessIDFromContext(ctx)
		if accessID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		if err := svc.Logout(ctx, accessID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.MessageResponse{Msg: "logged out"})
	}
}
