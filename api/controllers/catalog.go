package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aspida-health/aspida-backend/api/responses"
	"github.com/aspida-health/aspida-backend/internal/catalog"
	"github.com/aspida-health/aspida-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// ProductsList serves the public catalog with filters and cursor pagination.
func ProductsList(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		req := catalog.ListProductsRequest{
			CategorySlug: strings.TrimSpace(query.Get("category")),
			BrandSlug:    strings.TrimSpace(query.Get("brand")),
			Cursor:       strings.TrimSpace(query.Get("cursor")),
		}
		if raw := query.Get("bestseller"); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err == nil {
				req.Bestseller = &value
			}
		}
		if raw := query.Get("limit"); raw != "" {
			if value, err := strconv.Atoi(raw); err == nil {
				req.Limit = value
			}
		}

		page, err := svc.ListProducts(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ProductGet(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		detail, err := svc.GetProduct(ctx, chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func CategoriesList(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		categories, err := svc.ListCategories(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

func BrandsList(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		brands, err := svc.ListBrands(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"brands": brands})
	}
}
