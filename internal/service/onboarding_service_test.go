package service

import (
	"context"
	"testing"
	"time"

	"classroom_api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOnboardingFixture() (*onboardingService, *memProfileRepo) {
	repo := newMemProfileRepo()
	svc := NewOnboardingService(repo, zap.NewNop()).(*onboardingService)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo
}

func intPtr(v int) *int { return &v }

func TestSubmitTeacherOnboarding_Success(t *testing.T) {
	svc, repo := newOnboardingFixture()

	profile, err := svc.SubmitTeacherOnboarding(context.Background(), 3, model.RoleTeacher, &model.TeacherOnboardingRequest{
		Bio:               "Teaching since 2018.",
		Qualifications:    "PhD",
		Specialization:    "Computer Science",
		YearsOfExperience: intPtr(8),
	})
	require.NoError(t, err)
	assert.True(t, profile.OnboardingCompleted)
	assert.Equal(t, "Computer Science", *profile.Specialization)
	assert.Nil(t, profile.Institution)

	stored := repo.teachers[3]
	require.NotNil(t, stored)
	assert.True(t, stored.OnboardingCompleted)
	assert.Equal(t, "Computer Science", *stored.Specialization)
}

func TestSubmitTeacherOnboarding_WrongRoleIgnoresPayload(t *testing.T) {
	svc, repo := newOnboardingFixture()

	for _, req := range []*model.TeacherOnboardingRequest{
		nil,
		{},
		{Bio: "b", Qualifications: "q", Specialization: "s"},
	} {
		_, err := svc.SubmitTeacherOnboarding(context.Background(), 4, model.RoleStudent, req)
		assert.ErrorIs(t, err, ErrForbidden)
	}
	assert.Zero(t, repo.saveCalls)
}

func TestSubmitTeacherOnboarding_MissingFields(t *testing.T) {
	svc, repo := newOnboardingFixture()

	_, err := svc.SubmitTeacherOnboarding(context.Background(), 3, model.RoleTeacher, &model.TeacherOnboardingRequest{
		Qualifications:    "PhD",
		YearsOfExperience: intPtr(-1),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{msgRequired}, verr.Fields["bio"])
	assert.Equal(t, []string{msgRequired}, verr.Fields["specialization"])
	assert.Contains(t, verr.Fields, "years_of_experience")
	assert.NotContains(t, verr.Fields, "qualifications")
	assert.Zero(t, repo.saveCalls)
}

func TestSubmitTeacherOnboarding_ResubmissionOverwrites(t *testing.T) {
	svc, repo := newOnboardingFixture()
	ctx := context.Background()
	req := &model.TeacherOnboardingRequest{Bio: "b", Qualifications: "q", Specialization: "Math"}

	_, err := svc.SubmitTeacherOnboarding(ctx, 3, model.RoleTeacher, req)
	require.NoError(t, err)
	req.Specialization = "Physics"
	_, err = svc.SubmitTeacherOnboarding(ctx, 3, model.RoleTeacher, req)
	require.NoError(t, err)

	assert.Equal(t, "Physics", *repo.teachers[3].Specialization)
	assert.True(t, repo.teachers[3].OnboardingCompleted)
}

func validStudentRequest() *model.StudentOnboardingRequest {
	return &model.StudentOnboardingRequest{
		StudentID:             "S-1001",
		DateOfBirth:           "2010-05-17",
		GradeLevel:            "10",
		ParentGuardianContact: "+998901234567",
	}
}

func TestSubmitStudentOnboarding_Success(t *testing.T) {
	svc, repo := newOnboardingFixture()

	profile, err := svc.SubmitStudentOnboarding(context.Background(), 5, model.RoleStudent, validStudentRequest())
	require.NoError(t, err)
	assert.True(t, profile.OnboardingCompleted)
	assert.Equal(t, "2010-05-17", profile.DateOfBirth.Format(dateLayout))
	assert.True(t, repo.students[5].OnboardingCompleted)
}

func TestSubmitStudentOnboarding_WrongRole(t *testing.T) {
	svc, _ := newOnboardingFixture()

	_, err := svc.SubmitStudentOnboarding(context.Background(), 3, model.RoleTeacher, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitStudentOnboarding_InvalidFields(t *testing.T) {
	svc, _ := newOnboardingFixture()

	req := validStudentRequest()
	req.StudentID = ""
	req.DateOfBirth = "17/05/2010"
	req.ParentGuardianContact = "12-34"

	_, err := svc.SubmitStudentOnboarding(context.Background(), 5, model.RoleStudent, req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "student_id")
	assert.Contains(t, verr.Fields, "date_of_birth")
	assert.Equal(t, []string{"Enter a valid phone number."}, verr.Fields["parent_guardian_contact"])
}

func TestSubmitStudentOnboarding_FutureBirthDate(t *testing.T) {
	svc, _ := newOnboardingFixture()

	req := validStudentRequest()
	req.DateOfBirth = "2027-01-01"
	_, err := svc.SubmitStudentOnboarding(context.Background(), 5, model.RoleStudent, req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "date_of_birth")
}

func TestSubmitStudentOnboarding_DuplicateStudentID(t *testing.T) {
	svc, _ := newOnboardingFixture()
	ctx := context.Background()

	_, err := svc.SubmitStudentOnboarding(ctx, 5, model.RoleStudent, validStudentRequest())
	require.NoError(t, err)

	_, err = svc.SubmitStudentOnboarding(ctx, 6, model.RoleStudent, validStudentRequest())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "student_id")
}

func TestSubmitTeacherOnboarding_BlankFieldsRejected(t *testing.T) {
	svc, repo := newOnboardingFixture()

	_, err := svc.SubmitTeacherOnboarding(context.Background(), 3, model.RoleTeacher, &model.TeacherOnboardingRequest{
		Bio:            "  ",
		Qualifications: "\t",
		Specialization: " ",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"bio", "qualifications", "specialization"} {
		assert.Equal(t, []string{"This field may not be blank."}, verr.Fields[field], field)
	}
	assert.Zero(t, repo.saveCalls)
}

func TestSubmitTeacherOnboarding_TrimsWhitespace(t *testing.T) {
	svc, _ := newOnboardingFixture()

	profile, err := svc.SubmitTeacherOnboarding(context.Background(), 3, model.RoleTeacher, &model.TeacherOnboardingRequest{
		Bio:            " Teaching since 2018. ",
		Qualifications: "PhD\n",
		Specialization: "  Computer Science",
	})
	require.NoError(t, err)
	assert.Equal(t, "Teaching since 2018.", *profile.Bio)
	assert.Equal(t, "PhD", *profile.Qualifications)
	assert.Equal(t, "Computer Science", *profile.Specialization)
}

func TestSubmitStudentOnboarding_BlankStudentIDRejected(t *testing.T) {
	svc, repo := newOnboardingFixture()

	_, err := svc.SubmitStudentOnboarding(context.Background(), 5, model.RoleStudent, &model.StudentOnboardingRequest{
		StudentID:   "   ",
		DateOfBirth: "2010-05-17",
		GradeLevel:  " ",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "student_id")
	assert.Contains(t, verr.Fields, "grade_level")
	assert.Zero(t, repo.saveCalls)
}
