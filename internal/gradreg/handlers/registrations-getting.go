package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gradreg/internal/gradreg/data"
	"gradreg/pkg/logging"
)

type RegistrationsGettingHandler struct {
	service RegistrationsGettingService
	logger  *logging.ZapLogger
}

type RegistrationsGettingService interface {
	GetAllRegistrations(ctx context.Context) ([]data.Registration, error)
}

type registrationItem struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	UniversityRegisterNo  string    `json:"university_register_no"`
	CollegeRollNo         string    `json:"college_roll_no"`
	Degree                string    `json:"degree"`
	Course                string    `json:"course"`
	WhatsappNumber        string    `json:"whatsapp_number"`
	Email                 string    `json:"email"`
	Gender                string    `json:"gender"`
	Address               string    `json:"address"`
	PursuingHigherStudies bool      `json:"pursuing_higher_studies"`
	HSCourseName          string    `json:"hs_course_name,omitempty"`
	HSInstitutionName     string    `json:"hs_institution_name,omitempty"`
	Employed              bool      `json:"employed"`
	LunchRequired         string    `json:"lunch_required"`
	CompanionOption       string    `json:"companion_option"`
	CreatedAt             time.Time `json:"created_at"`
}

func NewRegistrationsGettingHandler(
	service RegistrationsGettingService,
	logger *logging.ZapLogger,
) *RegistrationsGettingHandler {
	return &RegistrationsGettingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *RegistrationsGettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	registrations, err := h.service.GetAllRegistrations(r.Context())
	if err != nil {
		h.logger.ErrorCtx(r.Context(), "registrations getting error", zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "failed to get registrations")
		return
	}

	items := make([]registrationItem, 0, len(registrations))
	for i := range registrations {
		items = append(items, registrationResponseItem(&registrations[i]))
	}

	if err := tryWriteResponseJSON(w, items); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing response", zap.Error(err))
	}
}

func registrationResponseItem(r *data.Registration) registrationItem {
	return registrationItem{
		ID:                    r.ID,
		Name:                  r.Name,
		UniversityRegisterNo:  r.UniversityRegisterNo,
		CollegeRollNo:         r.CollegeRollNo,
		Degree:                r.Degree,
		Course:                r.Course,
		WhatsappNumber:        r.WhatsappNumber,
		Email:                 r.Email,
		Gender:                r.Gender,
		Address:               r.Address,
		PursuingHigherStudies: r.PursuingHigherStudies,
		HSCourseName:          r.HSCourseName,
		HSInstitutionName:     r.HSInstitutionName,
		Employed:              r.Employed,
		LunchRequired:         r.LunchRequired,
		CompanionOption:       r.CompanionOption,
		CreatedAt:             r.CreatedAt,
	}
}
