package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-wear-alerts/internal/advisor"
	"github.com/i474232898/weather-wear-alerts/internal/alerts"
	"github.com/i474232898/weather-wear-alerts/internal/location"
	"github.com/i474232898/weather-wear-alerts/internal/profile"
	"github.com/i474232898/weather-wear-alerts/internal/refresh"
	"github.com/i474232898/weather-wear-alerts/internal/store"
	"github.com/i474232898/weather-wear-alerts/internal/weather"
)

var validate = validator.New()

// Coordinator is the refresh state and the manual trigger.
type Coordinator interface {
	State() refresh.State
	ForceRefresh()
}

// Locations is the current-location signal.
type Locations interface {
	Current() (weather.Location, bool)
	HasPermission() bool
	Set(loc weather.Location)
	Clear()
	SetPermission(granted bool)
}

type Geocoder interface {
	Enabled() bool
	Resolve(ctx context.Context, city, country string) (weather.Location, error)
}

type Advisor interface {
	Recommend(f weather.Forecast, p profile.Profile) advisor.Recommendation
	TodayWeather(f weather.Forecast) (weather.Sample, bool)
	Commute(f weather.Forecast, p profile.Profile) (advisor.CommuteWeather, bool)
}

type Notifications interface {
	Installed() []alerts.Installed
}

type Rescheduler interface {
	Reschedule(ctx context.Context, p profile.Profile, hint *weather.Forecast) error
}

type History interface {
	History(loc weather.Location, from, to time.Time) ([]weather.Forecast, error)
}

// Deps are the collaborators the routes talk to.
type Deps struct {
	Coordinator   Coordinator
	Profiles      store.ProfileStore
	Locations     Locations
	Geocoder      Geocoder
	Advisor       Advisor
	Notifications Notifications
	Rescheduler   Rescheduler
	History       History
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-wear-alerts",
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(d.Coordinator.State())
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		d.Coordinator.ForceRefresh()
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
	})

	v1.Get("/profile", func(c *fiber.Ctx) error {
		p, err := loadProfile(c.UserContext(), d.Profiles)
		if err != nil {
			return err
		}
		return c.JSON(p)
	})

	v1.Put("/profile", func(c *fiber.Ctx) error {
		var p profile.Profile
		if err := c.BodyParser(&p); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid profile body")
		}
		if err := p.Validate(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return saveProfile(c, d.Profiles, p)
	})

	v1.Post("/profile/reset", func(c *fiber.Ctx) error {
		if err := store.Reset(c.UserContext(), d.Profiles); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to reset profile")
		}
		p, err := loadProfile(c.UserContext(), d.Profiles)
		if err != nil {
			return err
		}
		return c.JSON(p)
	})

	v1.Put("/profile/home", func(c *fiber.Ctx) error {
		var req homeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid home body")
		}

		home, err := req.resolve(c.UserContext(), d.Geocoder)
		if err != nil {
			return err
		}
		return updateHome(c, d.Profiles, home)
	})

	v1.Post("/profile/home/current", func(c *fiber.Ctx) error {
		loc, ok := d.Locations.Current()
		if !ok {
			return fiber.NewError(fiber.StatusConflict, "current location unavailable")
		}
		return updateHome(c, d.Profiles, loc)
	})

	v1.Put("/location", func(c *fiber.Ctx) error {
		var loc weather.Location
		if err := c.BodyParser(&loc); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location body")
		}
		if err := validate.Struct(loc); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		d.Locations.Set(loc)
		return c.JSON(loc)
	})

	v1.Delete("/location", func(c *fiber.Ctx) error {
		d.Locations.Clear()
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/location/permission", func(c *fiber.Ctx) error {
		var req permissionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid permission body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		d.Locations.SetPermission(*req.Granted)
		return c.JSON(fiber.Map{"granted": d.Locations.HasPermission()})
	})

	v1.Get("/recommendation", func(c *fiber.Ctx) error {
		st := d.Coordinator.State()
		if st.Forecast == nil {
			return fiber.NewError(fiber.StatusNotFound, "no forecast available yet")
		}
		p, err := loadProfile(c.UserContext(), d.Profiles)
		if err != nil {
			return err
		}

		f := *st.Forecast
		resp := fiber.Map{
			"location":       f.Location,
			"fetchedAt":      f.FetchedAt,
			"recommendation": d.Advisor.Recommend(f, p),
		}
		if today, ok := d.Advisor.TodayWeather(f); ok {
			resp["today"] = today
			resp["feelsLike"] = advisor.FormatTemp(today.FeelsLike, f.Unit)
		}
		if commute, ok := d.Advisor.Commute(f, p); ok {
			resp["commute"] = commute
		}
		return c.JSON(resp)
	})

	v1.Get("/notifications", func(c *fiber.Ctx) error {
		return c.JSON(d.Notifications.Installed())
	})

	v1.Post("/notifications/reschedule", func(c *fiber.Ctx) error {
		p, err := loadProfile(c.UserContext(), d.Profiles)
		if err != nil {
			return err
		}
		if err := d.Rescheduler.Reschedule(c.UserContext(), p, d.Coordinator.State().Forecast); err != nil {
			if errors.Is(err, alerts.ErrHomeUnavailable) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(d.Notifications.Installed())
	})

	v1.Get("/forecasts/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		forecasts, err := d.History.History(req.Location, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, weather.ErrNoForecastData) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast history")
		}

		return c.JSON(fiber.Map{
			"location":  req.Location,
			"from":      req.From,
			"to":        req.To,
			"forecasts": forecasts,
		})
	})
}

func loadProfile(ctx context.Context, profiles store.ProfileStore) (profile.Profile, error) {
	p, ok, err := profiles.Load(ctx)
	if err != nil {
		return profile.Profile{}, fiber.NewError(fiber.StatusInternalServerError, "failed to load profile")
	}
	if !ok {
		return profile.Profile{}, fiber.NewError(fiber.StatusNotFound, "no profile stored")
	}
	return p, nil
}

func saveProfile(c *fiber.Ctx, profiles store.ProfileStore, p profile.Profile) error {
	if err := profiles.Save(c.UserContext(), p); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save profile")
	}
	return c.JSON(p)
}

func updateHome(c *fiber.Ctx, profiles store.ProfileStore, home weather.Location) error {
	p, ok, err := profiles.Load(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load profile")
	}
	if !ok {
		p = profile.Default()
	}
	p.Home = &home
	return saveProfile(c, profiles, p)
}

// homeRequest is either coordinates or an address to geocode.
type homeRequest struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Label   string   `json:"label"`
	City    string   `json:"city"`
	Country string   `json:"country"`
}

func (h homeRequest) resolve(ctx context.Context, g Geocoder) (weather.Location, error) {
	if h.Lat != nil || h.Lon != nil {
		if h.Lat == nil || h.Lon == nil {
			return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, "lat and lon must be given together")
		}
		loc := weather.Location{Lat: *h.Lat, Lon: *h.Lon, Label: h.Label}
		if err := validate.Struct(loc); err != nil {
			return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return loc, nil
	}
	if h.City == "" {
		return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, "either lat/lon or city is required")
	}
	if g == nil || !g.Enabled() {
		return weather.Location{}, fiber.NewError(fiber.StatusServiceUnavailable, "geocoding is not configured")
	}

	loc, err := g.Resolve(ctx, h.City, h.Country)
	if err != nil {
		if errors.Is(err, location.ErrAddressRequired) {
			return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return weather.Location{}, fiber.NewError(fiber.StatusBadGateway, "failed to geocode address")
	}
	if h.Label != "" {
		loc.Label = h.Label
	}
	return loc, nil
}

type permissionRequest struct {
	Granted *bool `json:"granted" validate:"required"`
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location weather.Location
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return errors.New("lon must be a number")
	}
	h.Location = weather.Location{Lat: lat, Lon: lon}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
