package notice

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"cmsportal/internal/clientstore"
	"cmsportal/internal/cms"
	"cmsportal/internal/consent/submission"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/requestcontext"
)

type fakeBackend struct {
	mu      sync.Mutex
	notice  *cms.Notice
	err     error
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (f *fakeBackend) GetNotice(context.Context, string) (*cms.Notice, error) {
	f.mu.Lock()
	f.calls++
	entered, release := f.entered, f.release
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice, f.err
}

type forgetter struct {
	mu   sync.Mutex
	refs []string
}

func (f *forgetter) Forget(_ context.Context, ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs = append(f.refs, ref)
}

type fakeSubmitter struct {
	mu      sync.Mutex
	inputs  []submission.Input
	err     error
	release chan struct{}
	entered chan struct{}
}

func (f *fakeSubmitter) Submit(_ context.Context, in submission.Input) (submission.Outcome, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return submission.Outcome{}, f.err
	}
	return submission.Outcome{ArtifactID: "art-1", RedirectURL: submission.ResolveRedirect(in.NoticeRedirectURL, in.Referrer)}, nil
}

type upperTranslator struct {
	mu        sync.Mutex
	cancelled []string
}

func (u *upperTranslator) Translate(_ context.Context, _, text, lang string) string {
	return "[" + lang + "] " + strings.ToUpper(text)
}

func (u *upperTranslator) Cancel(prefix string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cancelled = append(u.cancelled, prefix)
}

func scenarioNotice() *cms.Notice {
	k := &cms.CategoryRef{PurposeCategoryID: "K", Name: "Marketing"}
	return &cms.Notice{
		CMSRequestID:  "req-1",
		DataFiduciary: cms.DataFiduciary{DataFiduciaryID: "df-1", Name: "Acme", WebsiteURL: "https://acme.example"},
		Purposes: []cms.NoticePurpose{
			{PurposeID: "P1", Title: "Core", IsMandatory: true, RetentionPeriodDays: 30, Category: k},
			{PurposeID: "P2", Title: "Email", RetentionPeriodDays: 90, Category: k},
			{PurposeID: "P3", Title: "SMS", RetentionPeriodDays: 60, Category: k},
		},
		RetentionPolicy: cms.RetentionPolicy{RetentionPeriodDays: 365, WithdrawalPolicy: "Withdraw anytime"},
		LanguageConfig:  cms.LanguageConfig{LanguageCode: "en"},
		ValidUntil:      "2030-01-01T00:00:00Z",
	}
}

type EngineSuite struct {
	suite.Suite
	ctx       context.Context
	backend   *fakeBackend
	submitter *fakeSubmitter
	store     *clientstore.InMemoryStore
	engine    *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.backend = &fakeBackend{notice: scenarioNotice()}
	s.submitter = &fakeSubmitter{}
	s.store = clientstore.NewInMemory()
	s.engine = New(s.backend, s.submitter, s.store)
}

func (s *EngineSuite) load() View {
	v, err := s.engine.Load(s.ctx, "dev-1", "req-1", LoadOptions{})
	s.Require().NoError(err)
	return v
}

func (s *EngineSuite) TestLoadStartsWithEmptySelection() {
	v := s.load()
	s.Equal(PhaseLoaded, v.Phase)
	s.Empty(v.SelectedPurposeIDs)
	s.Empty(v.SelectedCategoryIDs)
	s.False(v.CanSubmit)
	s.Require().Len(v.Categories, 1)
	s.Equal(90, v.Categories[0].MaxRetentionDays)
	s.True(v.Categories[0].Purposes[0].Selected, "mandatory purpose shows as selected")
	s.False(v.Categories[0].Purposes[0].Explicit)
}

func (s *EngineSuite) TestScenarioThroughEngine() {
	s.load()

	v, err := s.engine.ToggleCategory(s.ctx, "dev-1", "req-1", "K")
	s.Require().NoError(err)
	s.Equal([]string{"P2", "P3"}, v.SelectedPurposeIDs)
	s.Equal([]string{"K"}, v.SelectedCategoryIDs)

	v, err = s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P2")
	s.Require().NoError(err)
	s.Equal([]string{"P3"}, v.SelectedPurposeIDs)
	s.Empty(v.SelectedCategoryIDs)

	v, err = s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P2")
	s.Require().NoError(err)
	s.Equal([]string{"P2", "P3"}, v.SelectedPurposeIDs)
	s.Equal([]string{"K"}, v.SelectedCategoryIDs)
}

func (s *EngineSuite) TestReloadResetsSelectionAndAgreement() {
	s.load()
	_, err := s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P2")
	s.Require().NoError(err)
	_, err = s.engine.SetAgree(s.ctx, "dev-1", "req-1", true)
	s.Require().NoError(err)

	v := s.load()
	s.Empty(v.SelectedPurposeIDs)
	s.False(v.Agree)
	s.Equal(2, s.backend.calls)
}

func (s *EngineSuite) TestSubmitGate() {
	s.load()

	_, err := s.engine.SetAgree(s.ctx, "dev-1", "req-1", true)
	s.Require().NoError(err)
	_, err = s.engine.Submit(s.ctx, "dev-1", "req-1")
	s.True(dErrors.HasCode(err, dErrors.CodePreconditionFailed), "agree without selection stays closed")

	_, err = s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P3")
	s.Require().NoError(err)
	_, err = s.engine.SetAgree(s.ctx, "dev-1", "req-1", false)
	s.Require().NoError(err)
	_, err = s.engine.Submit(s.ctx, "dev-1", "req-1")
	s.True(dErrors.HasCode(err, dErrors.CodePreconditionFailed), "selection without agree stays closed")
	s.Empty(s.submitter.inputs)
}

func (s *EngineSuite) TestSubmitSendsExplicitSelectionAndIsTerminal() {
	s.load()
	_, _ = s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P3")
	_, _ = s.engine.SetAgree(s.ctx, "dev-1", "req-1", true)

	out, err := s.engine.Submit(s.ctx, "dev-1", "req-1")
	s.Require().NoError(err)
	s.Equal("art-1", out.ArtifactID)
	s.Require().Len(s.submitter.inputs, 1)
	s.Equal([]string{"P3"}, s.submitter.inputs[0].SelectedPurposeIDs)
	s.Equal("en", s.submitter.inputs[0].LanguageCode)
	s.Equal("https://acme.example", s.submitter.inputs[0].FiduciaryWebsite)

	_, err = s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P2")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	v := s.load()
	s.Equal(PhaseSubmitted, v.Phase)
	s.Require().NotNil(v.Outcome)
	s.Equal(1, s.backend.calls, "submitted session is not refetched")

	got, err := s.engine.Outcome(s.ctx, "dev-1", "req-1")
	s.Require().NoError(err)
	s.Equal("art-1", got.ArtifactID)
}

func (s *EngineSuite) TestSubmitForgetsInitiationOnlyOnSuccess() {
	initiations := &forgetter{}
	s.engine = New(s.backend, s.submitter, s.store, WithInitiations(initiations))
	s.load()
	_, _ = s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P2")
	_, _ = s.engine.SetAgree(s.ctx, "dev-1", "req-1", true)

	s.submitter.err = dErrors.New(dErrors.CodeUnavailable, "down")
	_, err := s.engine.Submit(s.ctx, "dev-1", "req-1")
	s.Require().Error(err)
	s.Empty(initiations.refs)

	s.submitter.err = nil
	_, err = s.engine.Submit(s.ctx, "dev-1", "req-1")
	s.Require().NoError(err)
	s.Equal([]string{"req-1"}, initiations.refs)
}

func (s *EngineSuite) TestSubmitFailureKeepsSelection() {
	s.submitter.err = dErrors.New(dErrors.CodeUnavailable, "down")
	s.load()
	_, _ = s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P2")
	_, _ = s.engine.SetAgree(s.ctx, "dev-1", "req-1", true)

	_, err := s.engine.Submit(s.ctx, "dev-1", "req-1")
	s.Require().Error(err)

	v, err := s.engine.View(s.ctx, "dev-1", "req-1")
	s.Require().NoError(err)
	s.Equal(PhaseLoaded, v.Phase)
	s.Equal([]string{"P2"}, v.SelectedPurposeIDs)
	s.True(v.CanSubmit)

	s.submitter.err = nil
	_, err = s.engine.Submit(s.ctx, "dev-1", "req-1")
	s.NoError(err, "resubmission is allowed after failure")
}

func (s *EngineSuite) TestNoConcurrentSubmission() {
	s.submitter.release = make(chan struct{})
	s.submitter.entered = make(chan struct{}, 1)
	s.load()
	_, _ = s.engine.TogglePurpose(s.ctx, "dev-1", "req-1", "P2")
	_, _ = s.engine.SetAgree(s.ctx, "dev-1", "req-1", true)

	done := make(chan error, 1)
	go func() {
		_, err := s.engine.Submit(s.ctx, "dev-1", "req-1")
		done <- err
	}()
	<-s.submitter.entered

	_, err := s.engine.Submit(s.ctx, "dev-1", "req-1")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	close(s.submitter.release)
	s.NoError(<-done)
	s.Len(s.submitter.inputs, 1)
}

func (s *EngineSuite) TestSessionStaysReadableWhileNoticeIsFetched() {
	s.backend.entered = make(chan struct{}, 1)
	s.backend.release = make(chan struct{})

	loaded := make(chan View, 1)
	go func() {
		v, err := s.engine.Load(s.ctx, "dev-1", "req-1", LoadOptions{})
		s.NoError(err)
		loaded <- v
	}()
	<-s.backend.entered

	viewed := make(chan View, 1)
	go func() {
		v, err := s.engine.View(s.ctx, "dev-1", "req-1")
		s.NoError(err)
		viewed <- v
	}()
	select {
	case v := <-viewed:
		s.Equal(PhaseLoading, v.Phase)
	case <-time.After(time.Second):
		s.Fail("view waited on the notice fetch")
	}

	_, err := s.engine.ToggleCategory(s.ctx, "dev-1", "req-1", "K")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	_, err = s.engine.Outcome(s.ctx, "dev-1", "req-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	close(s.backend.release)
	s.Equal(PhaseLoaded, (<-loaded).Phase)
}

func (s *EngineSuite) TestSupersededLoadDoesNotInstall() {
	s.backend.entered = make(chan struct{}, 2)
	first := make(chan struct{})
	s.backend.release = first

	older := make(chan View, 1)
	go func() {
		v, _ := s.engine.Load(s.ctx, "dev-1", "req-1", LoadOptions{})
		older <- v
	}()
	<-s.backend.entered

	// the newer load fetches a notice that has since expired
	expired := scenarioNotice()
	expired.ValidUntil = "2025-06-01T00:00:00Z"
	s.backend.mu.Lock()
	s.backend.notice = expired
	s.backend.release = nil
	s.backend.mu.Unlock()
	_, err := s.engine.Load(s.ctx, "dev-1", "req-1", LoadOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	<-s.backend.entered

	close(first)
	s.Equal(PhaseError, (<-older).Phase, "older fetch reports the newer state")

	v, err := s.engine.View(s.ctx, "dev-1", "req-1")
	s.Require().NoError(err)
	s.Equal(PhaseError, v.Phase)
}

func (s *EngineSuite) TestExpiredNoticeBacksOutToRedirect() {
	n := scenarioNotice()
	n.ValidUntil = "2025-06-01T00:00:00Z"
	n.RedirectURL = "https://acme.example/back"
	s.backend.notice = n

	v, err := s.engine.Load(s.ctx, "dev-1", "req-1", LoadOptions{Referrer: "https://ref.example"})
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	s.Equal(PhaseError, v.Phase)
	s.Require().NotNil(v.Error)
	s.Equal("https://acme.example/back", v.Error.BackURL)
}

func (s *EngineSuite) TestLoadFailureBacksOutToReferrerThenRoot() {
	s.backend.err = dErrors.New(dErrors.CodeNotFound, "Consent notice not found")

	v, err := s.engine.Load(s.ctx, "dev-1", "req-1", LoadOptions{Referrer: "https://ref.example"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal("https://ref.example", v.Error.BackURL)
	s.Equal("Consent notice not found", v.Error.Message)

	v, _ = s.engine.Load(s.ctx, "dev-2", "req-1", LoadOptions{})
	s.Equal("/", v.Error.BackURL)
}

func (s *EngineSuite) TestReferrerCapture() {
	_, err := s.engine.Load(s.ctx, "dev-1", "req-1", LoadOptions{Referrer: "https://first.example"})
	s.Require().NoError(err)
	stored, err := s.store.Get(s.ctx, "dev-1", clientstore.KeyReferrer)
	s.Require().NoError(err)
	s.Equal("https://first.example", stored)

	// a new notice on the same device without a Referer reuses the stored one
	v, err := s.engine.Load(s.ctx, "dev-1", "req-2", LoadOptions{})
	s.Require().NoError(err)
	s.Equal("https://first.example", v.Referrer)

	// a device with nothing stored captures ""
	v, err = s.engine.Load(s.ctx, "dev-9", "req-1", LoadOptions{})
	s.Require().NoError(err)
	s.Empty(v.Referrer)
	_, err = s.store.Get(s.ctx, "dev-9", clientstore.KeyReferrer)
	s.Error(err)
}

func (s *EngineSuite) TestMutationsRequireLoadedSession() {
	_, err := s.engine.ToggleCategory(s.ctx, "dev-1", "req-1", "K")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.load()
	_, err = s.engine.ToggleCategory(s.ctx, "dev-1", "req-1", "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EngineSuite) TestCloseDropsSession() {
	s.load()
	s.engine.Close("dev-1", "req-1")
	_, err := s.engine.View(s.ctx, "dev-1", "req-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestLocalizedView(t *testing.T) {
	translator := &upperTranslator{}
	engine := New(&fakeBackend{notice: scenarioNotice()}, &fakeSubmitter{}, clientstore.NewInMemory(), WithTranslator(translator))
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	v, err := engine.Load(ctx, "dev-1", "req-1", LoadOptions{Language: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", v.DisplayLanguage)
	assert.Equal(t, "[hi] MARKETING", v.Categories[0].Name)
	assert.Equal(t, "[hi] EMAIL", v.Categories[0].Purposes[1].Title)
	assert.Equal(t, "[hi] WITHDRAW ANYTIME", v.WithdrawalPolicy)

	// the notice's own language needs no translation
	v, err = engine.Load(ctx, "dev-2", "req-1", LoadOptions{Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Marketing", v.Categories[0].Name)

	engine.Close("dev-1", "req-1")
	assert.Equal(t, []string{"dev-1/req-1/"}, translator.cancelled)
}
