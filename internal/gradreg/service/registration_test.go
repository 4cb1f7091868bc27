package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistrationInput() RegistrationInput {
	return RegistrationInput{
		Name:                 "john doe",
		UniversityRegisterNo: "URN2024001",
		CollegeRollNo:        "R-42",
		Degree:               "UG",
		Course:               "B.Sc Computer Science",
		WhatsappNumber:       "9876543210",
		Email:                "john@example.org",
		Gender:               "Male",
		Address:              "12 College Road",
		LunchRequired:        "VEG",
		CompanionOption:      "1 Veg",
	}
}

func TestRegister(t *testing.T) {
	repo := newFakeOrderRepository()
	registration := NewRegistration(repo, fakeTransactionManager{})

	id, err := registration.Register(context.Background(), validRegistrationInput())
	require.NoError(t, err)
	assert.Positive(t, id)

	stored, err := repo.GetRegistration(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "JOHN DOE", stored.Name)
	assert.Equal(t, "john@example.org", stored.Email)
}

func TestRegisterHigherStudiesFields(t *testing.T) {
	repo := newFakeOrderRepository()
	registration := NewRegistration(repo, fakeTransactionManager{})

	input := validRegistrationInput()
	input.HSCourseName = "M.Sc Data Science"
	input.HSInstitutionName = "State University"

	// Not pursuing higher studies: the fields are dropped.
	id, err := registration.Register(context.Background(), input)
	require.NoError(t, err)
	stored, err := repo.GetRegistration(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, stored.HSCourseName)
	assert.Empty(t, stored.HSInstitutionName)

	input.Email = "jane@example.org"
	input.PursuingHigherStudies = true
	id, err = registration.Register(context.Background(), input)
	require.NoError(t, err)
	stored, err = repo.GetRegistration(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "M.Sc Data Science", stored.HSCourseName)
	assert.Equal(t, "State University", stored.HSInstitutionName)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(input *RegistrationInput)
	}{
		{
			name:   "missing name",
			mutate: func(input *RegistrationInput) { input.Name = "" },
		},
		{
			name:   "missing university register number",
			mutate: func(input *RegistrationInput) { input.UniversityRegisterNo = "" },
		},
		{
			name:   "unknown degree",
			mutate: func(input *RegistrationInput) { input.Degree = "PhD" },
		},
		{
			name:   "missing course",
			mutate: func(input *RegistrationInput) { input.Course = "" },
		},
		{
			name:   "short phone number",
			mutate: func(input *RegistrationInput) { input.WhatsappNumber = "12345" },
		},
		{
			name:   "phone number with letters",
			mutate: func(input *RegistrationInput) { input.WhatsappNumber = "98765abcde" },
		},
		{
			name:   "invalid email",
			mutate: func(input *RegistrationInput) { input.Email = "not-an-email" },
		},
		{
			name:   "unknown gender",
			mutate: func(input *RegistrationInput) { input.Gender = "X" },
		},
		{
			name:   "unknown lunch option",
			mutate: func(input *RegistrationInput) { input.LunchRequired = "JAIN" },
		},
		{
			name:   "unknown companion option",
			mutate: func(input *RegistrationInput) { input.CompanionOption = "3 Veg" },
		},
		{
			name: "higher studies without course name",
			mutate: func(input *RegistrationInput) {
				input.PursuingHigherStudies = true
				input.HSInstitutionName = "State University"
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo := newFakeOrderRepository()
			registration := NewRegistration(repo, fakeTransactionManager{})

			input := validRegistrationInput()
			test.mutate(&input)

			_, err := registration.Register(context.Background(), input)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, repo.registrations)
		})
	}
}

func TestCheckEmail(t *testing.T) {
	repo := newFakeOrderRepository()
	registration := NewRegistration(repo, fakeTransactionManager{})

	_, err := registration.Register(context.Background(), validRegistrationInput())
	require.NoError(t, err)

	exists, err := registration.CheckEmail(context.Background(), "john@example.org")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = registration.CheckEmail(context.Background(), "nobody@example.org")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = registration.CheckEmail(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrValidation)
}
