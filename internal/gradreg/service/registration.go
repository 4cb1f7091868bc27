package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gradreg/internal/gradreg/data"
)

var (
	degreeValues    = []string{"UG", "PG"}
	genderValues    = []string{"Male", "Female", "Other"}
	lunchValues     = []string{"VEG", "NON-VEG"}
	companionValues = []string{
		"1 Veg",
		"1 Non veg",
		"2 Veg",
		"2 Non Veg",
		"1 Veg and 1 Non veg",
	}

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

type RegistrationRepository interface {
	InsertRegistration(ctx context.Context, r *data.Registration) (int64, error)
	GetRegistration(ctx context.Context, id int64) (*data.Registration, error)
	GetAllRegistrations(ctx context.Context) ([]data.Registration, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type RegistrationInput struct {
	Name                  string `json:"name"`
	UniversityRegisterNo  string `json:"university_register_no"`
	CollegeRollNo         string `json:"college_roll_no"`
	Degree                string `json:"degree"`
	Course                string `json:"course"`
	WhatsappNumber        string `json:"whatsapp_number"`
	Email                 string `json:"email"`
	Gender                string `json:"gender"`
	Address               string `json:"address"`
	PursuingHigherStudies bool   `json:"pursuing_higher_studies"`
	HSCourseName          string `json:"hs_course_name"`
	HSInstitutionName     string `json:"hs_institution_name"`
	Employed              bool   `json:"employed"`
	LunchRequired         string `json:"lunch_required"`
	CompanionOption       string `json:"companion_option"`
}

type Registration struct {
	repository         RegistrationRepository
	transactionManager TransactionManager
}

func NewRegistration(
	repository RegistrationRepository,
	transactionManager TransactionManager,
) *Registration {
	return &Registration{
		repository:         repository,
		transactionManager: transactionManager,
	}
}

func (r *Registration) Register(ctx context.Context, input RegistrationInput) (int64, error) {
	if err := validateRegistrationInput(&input); err != nil {
		return 0, err
	}

	record := &data.Registration{
		Name:                  strings.ToUpper(input.Name),
		UniversityRegisterNo:  input.UniversityRegisterNo,
		CollegeRollNo:         input.CollegeRollNo,
		Degree:                input.Degree,
		Course:                input.Course,
		WhatsappNumber:        input.WhatsappNumber,
		Email:                 input.Email,
		Gender:                input.Gender,
		Address:               input.Address,
		PursuingHigherStudies: input.PursuingHigherStudies,
		Employed:              input.Employed,
		LunchRequired:         input.LunchRequired,
		CompanionOption:       input.CompanionOption,
	}
	if input.PursuingHigherStudies {
		record.HSCourseName = input.HSCourseName
		record.HSInstitutionName = input.HSInstitutionName
	}

	var id int64
	err := r.transactionManager.DoWithTransaction(ctx, func(ctx context.Context) error {
		insertedID, err := r.repository.InsertRegistration(ctx, record)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrUniqueConstraintViolation):
				return ErrRegistrationExists
			default:
				return fmt.Errorf("error inserting registration: %w", err)
			}
		}
		id = insertedID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Registration) CheckEmail(ctx context.Context, email string) (bool, error) {
	if !emailPattern.MatchString(email) {
		return false, fmt.Errorf("%w: valid email is required", ErrValidation)
	}
	exists, err := r.repository.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}

func (r *Registration) GetAllRegistrations(ctx context.Context) ([]data.Registration, error) {
	registrations, err := r.repository.GetAllRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting registrations: %w", err)
	}
	return registrations, nil
}

func validateRegistrationInput(input *RegistrationInput) error {
	switch {
	case input.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case input.UniversityRegisterNo == "":
		return fmt.Errorf("%w: university_register_no is required", ErrValidation)
	case !slices.Contains(degreeValues, input.Degree):
		return fmt.Errorf("%w: degree must be one of %s", ErrValidation, strings.Join(degreeValues, ", "))
	case input.Course == "":
		return fmt.Errorf("%w: course is required", ErrValidation)
	case !phonePattern.MatchString(input.WhatsappNumber):
		return fmt.Errorf("%w: whatsapp_number must be exactly 10 digits", ErrValidation)
	case !emailPattern.MatchString(input.Email):
		return fmt.Errorf("%w: email is invalid", ErrValidation)
	case !slices.Contains(genderValues, input.Gender):
		return fmt.Errorf("%w: gender must be one of %s", ErrValidation, strings.Join(genderValues, ", "))
	case !slices.Contains(lunchValues, input.LunchRequired):
		return fmt.Errorf("%w: lunch_required must be one of %s", ErrValidation, strings.Join(lunchValues, ", "))
	case !slices.Contains(companionValues, input.CompanionOption):
		return fmt.Errorf("%w: companion_option must be one of %s", ErrValidation, strings.Join(companionValues, " | "))
	case input.PursuingHigherStudies && (input.HSCourseName == "" || input.HSInstitutionName == ""):
		return fmt.Errorf(
			"%w: hs_course_name and hs_institution_name are required when pursuing_higher_studies is set",
			ErrValidation,
		)
	}
	return nil
}
