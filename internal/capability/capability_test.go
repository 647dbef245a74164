package capability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/formpilot/internal/capability"
	"github.com/tinkerloft/formpilot/internal/classifier"
	"github.com/tinkerloft/formpilot/internal/model"
)

type recordingExecutor struct {
	plans []capability.ActionPlan
	fail  bool
}

func (r *recordingExecutor) Execute(_ context.Context, plan capability.ActionPlan) (capability.ExecutionReport, error) {
	r.plans = append(r.plans, plan)
	if r.fail {
		return capability.ExecutionReport{Success: false, Detail: "element not found"}, nil
	}
	return capability.ExecutionReport{Success: true}, nil
}

type fixedBooster float64

func (f fixedBooster) PatternBoost(string, model.QuestionType, string) float64 { return float64(f) }

type fakeRecaller map[string]string

func (f fakeRecaller) Recall(text string) (model.LearningEvent, bool) {
	v, ok := f[text]
	return model.LearningEvent{QuestionText: text, ResolutionValue: v}, ok
}

var testProfile = capability.Profile{
	Age:             34,
	Gender:          "Female",
	Postcode:        "2000",
	PersonalIncome:  "$100,000 to $149,999",
	HouseholdIncome: "$200,000 to $499,999",
	Activities:      []string{"Yoga", "Went to the cinema"},
	Brands:          map[string]string{"Acme": "Very familiar", "Globex": "Somewhat familiar", "Initech": "Not familiar"},
	Ratings:         map[string]string{"customer service": "Strongly agree"},
	Answers:         map[string]string{"stadium": "Accor Stadium"},
}

func question(text string, options ...string) *model.Question {
	return &model.Question{
		Text:           text,
		Options:        options,
		Classification: classifier.NewDefault().Classify(text),
	}
}

func TestDemographics_CanHandle(t *testing.T) {
	d := capability.NewDemographics(testProfile, &recordingExecutor{}, nil)

	q := question("How old are you?")
	assert.InDelta(t, 0.8, d.CanHandle(q), 1e-9)

	// Nothing in the profile to answer with.
	assert.Zero(t, d.CanHandle(question("What is your highest level of education?")))

	// Not a demographic question.
	assert.Zero(t, d.CanHandle(question("Select all that apply")))
}

func TestDemographics_CanHandleAddsLearnedBoost(t *testing.T) {
	d := capability.NewDemographics(testProfile, &recordingExecutor{}, fixedBooster(0.05))
	assert.InDelta(t, 0.85, d.CanHandle(question("How old are you?")), 1e-9)
	assert.Zero(t, d.CanHandle(question("")))
}

func TestDemographics_MixedContentPenalty(t *testing.T) {
	d := capability.NewDemographics(testProfile, &recordingExecutor{}, nil)
	text := "What is your age? We also asked which chocolate product you bought in the last 12 months."

	strong := &model.Question{Text: text, Classification: model.Classification{Type: model.TypeAge, Confidence: 0.75}}
	assert.InDelta(t, 0.51, d.CanHandle(strong), 1e-9)

	weak := &model.Question{Text: text, Classification: model.Classification{Type: model.TypeAge, Confidence: 0.5}}
	assert.Zero(t, d.CanHandle(weak))
}

func TestDemographics_Handle(t *testing.T) {
	exec := &recordingExecutor{}
	d := capability.NewDemographics(testProfile, exec, nil)

	out, err := d.Handle(context.Background(), question("How old are you?", "18-24", "25-34", "35-44"))
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "25-34", out.Value)

	out, err = d.Handle(context.Background(), question("What is your gender?", "Male", "Female", "Other"))
	require.NoError(t, err)
	assert.Equal(t, "Female", out.Value)

	out, err = d.Handle(context.Background(), question("What is your annual household income before tax?",
		"$100,000 to $149,999", "$200,000 to $499,999"))
	require.NoError(t, err)
	assert.Equal(t, "$200,000 to $499,999", out.Value)

	q := question("What is your postcode?")
	q.Context.Element = "text_input"
	out, err = d.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "2000", out.Value)
	assert.Equal(t, "text_input", out.Strategy)

	require.Len(t, exec.plans, 4)
	assert.Equal(t, capability.ActionSelect, exec.plans[0].Action)
	assert.Equal(t, capability.ActionFill, exec.plans[3].Action)
	assert.Equal(t, capability.NameDemographics, exec.plans[3].Capability)
}

func TestDemographics_HandleNoAnswer(t *testing.T) {
	d := capability.NewDemographics(capability.Profile{}, &recordingExecutor{}, nil)
	_, err := d.Handle(context.Background(), question("How old are you?"))
	assert.True(t, errors.Is(err, capability.ErrNoAnswer))

	_, err = d.Handle(context.Background(), question("Select all that apply"))
	assert.True(t, errors.Is(err, capability.ErrUnsupported))
}

func TestDemographics_ReportedFailure(t *testing.T) {
	d := capability.NewDemographics(testProfile, &recordingExecutor{fail: true}, nil)
	out, err := d.Handle(context.Background(), question("How old are you?"))
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "element not found", out.Detail)
}

func TestRatingMatrix(t *testing.T) {
	r := capability.NewRatingMatrix(testProfile, &recordingExecutor{}, nil)

	q := question("How much do you agree or disagree with the following statements about customer service?",
		"Strongly agree", "Somewhat agree", "Strongly disagree")
	assert.Greater(t, r.CanHandle(q), 0.5)

	out, err := r.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Strongly agree", out.Value)

	q = question("Please rate the statements below", "Strongly agree", "Somewhat agree")
	out, err = r.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Somewhat agree", out.Value)

	q = question("How much do you trust each of these news sources?", "Very trustworthy", "Somewhat trustworthy")
	out, err = r.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Somewhat trustworthy", out.Value)
}

func TestMultiSelect(t *testing.T) {
	m := capability.NewMultiSelect(testProfile, &recordingExecutor{}, nil)

	q := question("Which of these do you buy? Select all that apply.", "Acme", "Umbrella", "Globex")
	assert.Greater(t, m.CanHandle(q), 0.0)
	out, err := m.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Acme; Globex", out.Value)

	q = question("Select all that apply.", "Umbrella", "None of the above")
	out, err = m.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "None of the above", out.Value)

	_, err = m.Handle(context.Background(), question("Select all that apply.", "Umbrella"))
	assert.True(t, errors.Is(err, capability.ErrNoAnswer))
}

func TestRecencyActivities(t *testing.T) {
	r := capability.NewRecencyActivities(testProfile, &recordingExecutor{}, nil)
	q := question("Which of the following have you done in the last 12 months?",
		"Yoga", "Skydiving", "Went to the cinema", "None of these")

	withOverlap := r.CanHandle(q)
	assert.Greater(t, withOverlap, 0.5)

	out, err := r.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Yoga; Went to the cinema", out.Value)

	noOptions := question("Which of the following have you done in the last 12 months?")
	assert.Less(t, r.CanHandle(noOptions), withOverlap)
}

func TestBrandFamiliarity(t *testing.T) {
	b := capability.NewBrandFamiliarity(testProfile, &recordingExecutor{}, nil)

	q := question("How familiar are you with the brand Acme?", "Very familiar", "Somewhat familiar", "Not familiar")
	assert.Greater(t, b.CanHandle(q), 0.0)
	out, err := b.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Very familiar", out.Value)

	grid := question("How familiar are you with each brand: Acme, Globex, Initech?")
	single := question("How familiar are you with the brand Acme?")
	assert.Greater(t, b.CanHandle(grid), b.CanHandle(single))
	out, err = b.Handle(context.Background(), grid)
	require.NoError(t, err)
	assert.Equal(t, "Acme: Very familiar; Globex: Somewhat familiar; Initech: Not familiar", out.Value)

	assert.Zero(t, b.CanHandle(question("How familiar are you with the brand Umbrella?")))
}

func TestResearchRequired(t *testing.T) {
	r := capability.NewResearchRequired(testProfile, &recordingExecutor{}, nil)

	known := question("What is the name of the stadium where the final was played?")
	unknown := question("Which company sponsors the league?")
	assert.Greater(t, r.CanHandle(known), r.CanHandle(unknown))

	out, err := r.Handle(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, "Accor Stadium", out.Value)

	_, err = r.Handle(context.Background(), unknown)
	assert.True(t, errors.Is(err, capability.ErrNoAnswer))
}

func TestGeneric(t *testing.T) {
	g := capability.NewGeneric(fakeRecaller{"What is your favourite colour?": "Blue"}, &recordingExecutor{}, nil)

	assert.Zero(t, g.CanHandle(question("")))
	assert.Zero(t, g.CanHandle(question("Something never seen")))

	q := question("What is your favourite colour?")
	assert.InDelta(t, 0.85, g.CanHandle(q), 1e-9)
	out, err := g.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Blue", out.Value)

	withOptions := question("What is your favourite colour?", "Red", "Green")
	assert.Zero(t, g.CanHandle(withOptions))

	nilRecall := capability.NewGeneric(nil, &recordingExecutor{}, nil)
	_, err = nilRecall.Handle(context.Background(), q)
	assert.True(t, errors.Is(err, capability.ErrNoAnswer))
}

func TestMultiQuestion(t *testing.T) {
	exec := &recordingExecutor{}
	reg := capability.NewDefaultRegistry(capability.Deps{
		Profile:    testProfile,
		Executor:   exec,
		Classifier: classifier.NewDefault(),
	})

	q := question("How old are you? What is your gender?")
	require.Equal(t, model.TypeMultiQuestion, q.Type())

	c, conf, ok := reg.Select(q)
	require.True(t, ok)
	assert.Equal(t, capability.NameMultiQuestion, c.Name())
	assert.InDelta(t, 0.36, conf, 1e-9)

	out, err := c.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "34 | Female", out.Value)
	assert.Len(t, exec.plans, 2)
}

func TestMultiQuestion_UnansweredPart(t *testing.T) {
	reg := capability.NewDefaultRegistry(capability.Deps{
		Profile:    capability.Profile{Age: 34},
		Executor:   &recordingExecutor{},
		Classifier: classifier.NewDefault(),
	})
	q := question("How old are you? What is your gender?")

	mq, ok := reg.Get(capability.NameMultiQuestion)
	require.True(t, ok)
	assert.Zero(t, mq.CanHandle(q))

	_, err := mq.Handle(context.Background(), q)
	require.Error(t, err)
	assert.True(t, errors.Is(err, capability.ErrNoAnswer))
}

func TestSplitQuestions(t *testing.T) {
	assert.Equal(t, []string{"How old are you?", "What is your gender?"},
		capability.SplitQuestions("How old are you? What is your gender?"))
	assert.Equal(t, []string{"Name", "Age"}, capability.SplitQuestions("Name\n\nAge\n"))
	assert.Equal(t, []string{"Only one?"}, capability.SplitQuestions("Only one?"))
}

func TestDryRunExecutor(t *testing.T) {
	var exec capability.DryRunExecutor

	report, err := exec.Execute(context.Background(), capability.ActionPlan{Values: []string{"a", "b"}})
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, "a; b", report.Value)

	report, err = exec.Execute(context.Background(), capability.ActionPlan{})
	require.NoError(t, err)
	assert.False(t, report.Success)
}
