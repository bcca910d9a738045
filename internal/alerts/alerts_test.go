package alerts

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-wear-alerts/internal/profile"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

func TestRemapRoundTrip(t *testing.T) {
	remaps := []Remap{
		DefaultRemap,
		{InternalStart: time.Monday, ExternalStart: time.Monday, ExternalBase: 0},
		{InternalStart: time.Sunday, ExternalStart: time.Saturday, ExternalBase: 10},
	}
	for _, r := range remaps {
		seen := map[ExternalWeekday]bool{}
		for _, w := range profile.Weekdays {
			e := r.ToExternal(w)
			require.Equal(t, w, r.ToInternal(e), "remap %+v weekday %s", r, w)
			require.False(t, seen[e], "duplicate external weekday %d", e)
			seen[e] = true
		}
	}
}

func TestDefaultRemap(t *testing.T) {
	want := map[profile.Weekday]ExternalWeekday{
		profile.Monday:    2,
		profile.Tuesday:   3,
		profile.Wednesday: 4,
		profile.Thursday:  5,
		profile.Friday:    6,
		profile.Saturday:  7,
		profile.Sunday:    1,
	}
	for w, e := range want {
		assert.Equal(t, e, DefaultRemap.ToExternal(w), w.String())
		assert.Equal(t, w.String(), DefaultRemap.TimeWeekday(e).String())
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Monday")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseWeekday(" sun ")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	_, err = ParseWeekday("mo")
	require.Error(t, err)
	_, err = ParseWeekday("funday")
	require.Error(t, err)
}

func TestBuildMondayOnly(t *testing.T) {
	alert := profile.Alert{Enabled: true, Time: profile.MustTime("07:30")}
	alert.Days[profile.Monday] = true
	content := Content{Title: "Today", Body: "Take a jacket"}

	got := Build(alert, content, DefaultRemap)
	require.Len(t, got, 1)
	assert.Equal(t, ExternalWeekday(2), got[0].Weekday)
	assert.Equal(t, profile.TimeOfDay{Hour: 7, Minute: 30}, got[0].Time)
	assert.Equal(t, content, got[0].Content)
}

func TestBuildInactiveAlert(t *testing.T) {
	alert := profile.Alert{Enabled: false, Time: profile.MustTime("07:30")}
	alert.Days = [profile.DaysInWeek]bool{true, true, true, true, true, true, true}
	assert.Empty(t, Build(alert, Content{}, DefaultRemap))

	alert.Enabled = true
	alert.Time = nil
	assert.Empty(t, Build(alert, Content{}, DefaultRemap))
}

func TestBuildOrdersByApplicationWeekday(t *testing.T) {
	alert := profile.Alert{Enabled: true, Time: profile.MustTime("06:45")}
	alert.Days[profile.Sunday] = true
	alert.Days[profile.Wednesday] = true
	alert.Days[profile.Monday] = true

	got := Build(alert, Content{}, DefaultRemap)
	require.Len(t, got, 3)
	assert.Equal(t, []ExternalWeekday{2, 4, 1}, []ExternalWeekday{got[0].Weekday, got[1].Weekday, got[2].Weekday})
}

type fakeInstaller struct {
	mu        sync.Mutex
	installed []Descriptor
	cancels   int
}

func (f *fakeInstaller) CancelAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	f.installed = nil
	return nil
}

func (f *fakeInstaller) InstallWeekly(_ context.Context, d Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = append(f.installed, d)
	return nil
}

type stubFetcher struct {
	calls int
	force bool
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, loc weather.Location, unit weather.TemperatureUnit, force bool) (weather.Forecast, error) {
	s.calls++
	s.force = force
	if s.err != nil {
		return weather.Forecast{}, s.err
	}
	return weather.Forecast{Location: loc, Unit: unit}, nil
}

type stubAdvisor struct {
	last weather.Forecast
}

func (a *stubAdvisor) Notification(f weather.Forecast, p profile.Profile) Content {
	a.last = f
	return Content{Title: "Wear", Body: string(p.TemperatureUnit)}
}

var home = weather.Location{Lat: 59.33, Lon: 18.07, Label: "Stockholm"}

func alertProfile() profile.Profile {
	p := profile.Default()
	h := home
	p.Home = &h
	p.Alert = profile.Alert{Enabled: true, Time: profile.MustTime("07:30")}
	p.Alert.Days[profile.Monday] = true
	p.Alert.Days[profile.Friday] = true
	return p
}

func newTestRescheduler() (*Rescheduler, *fakeInstaller, *stubFetcher, *stubAdvisor) {
	inst := &fakeInstaller{}
	fetch := &stubFetcher{}
	adv := &stubAdvisor{}
	return NewRescheduler(inst, fetch, adv, DefaultRemap, log.New(io.Discard)), inst, fetch, adv
}

func TestRescheduleIsIdempotent(t *testing.T) {
	r, inst, _, _ := newTestRescheduler()
	p := alertProfile()

	require.NoError(t, r.Reschedule(context.Background(), p, nil))
	first := append([]Descriptor(nil), inst.installed...)
	require.NoError(t, r.Reschedule(context.Background(), p, nil))

	require.Len(t, first, 2)
	assert.Equal(t, first, inst.installed)
	assert.Equal(t, 2, inst.cancels)
}

func TestRescheduleUsesMatchingHint(t *testing.T) {
	r, _, fetch, adv := newTestRescheduler()
	p := alertProfile()

	hint := &weather.Forecast{Location: home, Unit: weather.Celsius, Providers: []string{"hint"}}
	require.NoError(t, r.Reschedule(context.Background(), p, hint))
	assert.Equal(t, 0, fetch.calls)
	assert.Equal(t, []string{"hint"}, adv.last.Providers)

	// A forecast for the current location is not a home forecast.
	other := &weather.Forecast{Location: weather.Location{Lat: 1, Lon: 2}, Unit: weather.Celsius}
	require.NoError(t, r.Reschedule(context.Background(), p, other))
	assert.Equal(t, 1, fetch.calls)
	assert.True(t, fetch.force)
}

func TestRescheduleInactiveAlertCancelsOnly(t *testing.T) {
	r, inst, fetch, _ := newTestRescheduler()
	p := alertProfile()
	require.NoError(t, r.Reschedule(context.Background(), p, nil))
	require.NotEmpty(t, inst.installed)

	p.Alert.Enabled = false
	require.NoError(t, r.Reschedule(context.Background(), p, nil))
	assert.Empty(t, inst.installed)
	assert.Equal(t, 1, fetch.calls)
}

func TestRescheduleWithoutHome(t *testing.T) {
	r, inst, fetch, _ := newTestRescheduler()
	p := alertProfile()
	p.Home = nil

	err := r.Reschedule(context.Background(), p, nil)
	require.ErrorIs(t, err, ErrHomeUnavailable)
	assert.Equal(t, 1, inst.cancels)
	assert.Empty(t, inst.installed)
	assert.Equal(t, 0, fetch.calls)
}

func TestRescheduleFetchFailure(t *testing.T) {
	r, inst, fetch, _ := newTestRescheduler()
	fetch.err = errors.New("timeout")

	err := r.Reschedule(context.Background(), alertProfile(), nil)
	require.ErrorIs(t, err, ErrForecastUnavailable)
	assert.Empty(t, inst.installed)
}

func TestRescheduleTracksAppliedProfile(t *testing.T) {
	r, _, fetch, _ := newTestRescheduler()
	ctx := context.Background()
	p := alertProfile()

	// Nothing known yet.
	assert.True(t, r.Applied(p))

	require.NoError(t, r.Reschedule(ctx, p, nil))
	assert.True(t, r.Applied(p))

	renamed := p
	renamed.Name = "Ada"
	assert.True(t, r.Applied(renamed))

	moved := p.Clone()
	moved.Alert.Time = profile.MustTime("08:00")
	assert.False(t, r.Applied(moved))

	fahrenheit := p.Clone()
	fahrenheit.TemperatureUnit = weather.Fahrenheit
	assert.False(t, r.Applied(fahrenheit))

	// A failed rebuild matches nothing until the next success.
	fetch.err = errors.New("timeout")
	require.Error(t, r.Reschedule(ctx, p, nil))
	assert.False(t, r.Applied(p))

	fetch.err = nil
	require.NoError(t, r.Reschedule(ctx, p, nil))
	assert.True(t, r.Applied(p))
}

func TestWeeklyInstaller(t *testing.T) {
	var delivered []Content
	inst := NewWeeklyInstaller(time.UTC, DefaultRemap, delivererFunc(func(c Content) {
		delivered = append(delivered, c)
	}), log.New(io.Discard))

	r := NewRescheduler(inst, &stubFetcher{}, &stubAdvisor{}, DefaultRemap, log.New(io.Discard))
	require.NoError(t, r.Reschedule(context.Background(), alertProfile(), nil))

	got := inst.Installed()
	require.Len(t, got, 2)
	assert.Equal(t, ExternalWeekday(2), got[0].Descriptor.Weekday)
	assert.Equal(t, ExternalWeekday(6), got[1].Descriptor.Weekday)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	require.NoError(t, r.Stop(context.Background()))
	assert.Empty(t, inst.Installed())
	assert.Empty(t, delivered)
}

type delivererFunc func(Content)

func (f delivererFunc) Deliver(_ context.Context, c Content) error {
	f(c)
	return nil
}
