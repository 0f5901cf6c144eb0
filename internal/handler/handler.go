package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/cache"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/utils"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/workbook"
)

// PlanStore 排班方案的存储，由 repository.Repository 实现
type PlanStore interface {
	CreatePlan(plan *domain.StaffingPlan) error
	GetAllPlans(owner string) ([]*domain.StaffingPlan, error)
	GetPlanByID(id int64) (*domain.StaffingPlan, error)
	DeletePlan(id int64) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  PlanStore
	translator  ut.Translator
	planChannel *amqp.Channel
	resultCache *cache.ResultCache
	loader      *workbook.Loader

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo PlanStore, planCh *amqp.Channel, resultCache *cache.ResultCache) (*Handler, error) {
	validate, trans, err := utils.NewValidator()
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		planChannel: planCh,
		resultCache: resultCache,
		loader:      workbook.NewLoader(validate, trans),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	// 以下 API 都需要携带令牌
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/plans", func(r chi.Router) {
			r.Post("/", h.CreatePlan)
			r.Post("/import", h.ImportPlan)
			r.Post("/solve", h.SolvePlan) // 同步求解，不落库
			r.Get("/", h.GetAllPlans)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.plan)
				r.Get("/", h.GetPlan)
				r.Delete("/", h.DeletePlan)
				r.Get("/export", h.ExportPlan)
			})
		})
	})
}
