package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smokyabdulrahman/prayer-countdown/internal/countdown"
	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
	"github.com/smokyabdulrahman/prayer-countdown/internal/provider"
)

var errOverrideDisabled = errors.New("location override is not enabled")

type nextResponse struct {
	prayer.Display
	State    string `json:"state"`
	At       string `json:"at,omitempty"`
	Location string `json:"location"`
}

type todayResponse struct {
	Date     string            `json:"date"`
	Hijri    string            `json:"hijri,omitempty"`
	Location string            `json:"location"`
	Timings  map[string]string `json:"timings"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) next(c *gin.Context) {
	table, err := s.tableFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := s.clock.Now()
	snap, err := countdown.LoadSnapshot(c.Request.Context(), table, now)
	if err != nil {
		// Missing data is reported through the undetermined state.
		s.log.WithError(err).WithField("request_id", c.GetString("request_id")).Warn("prayer times unavailable")
	}

	res := snap.Resolve(now)
	resp := nextResponse{
		Display:  res.Display(),
		State:    res.State.String(),
		Location: table.Location().Label(),
	}
	if res.State != prayer.Undetermined {
		resp.At = res.At.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) today(c *gin.Context) {
	table, err := s.tableFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	day, err := countdown.Today(c.Request.Context(), table, s.clock.Now())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	timings := make(map[string]string)
	for _, name := range append([]prayer.Name{prayer.Sunrise}, prayer.MainPrayers...) {
		if tod, ok := day.Timings[name]; ok {
			timings[string(name)] = tod.String()
		}
	}

	c.JSON(http.StatusOK, todayResponse{
		Date:     day.Date.Format("2006-01-02"),
		Hijri:    day.Raw.Date.Hijri.Format(),
		Location: table.Location().Label(),
		Timings:  timings,
	})
}

// tableFor returns the configured table, or one for the location passed as
// latitude&longitude or city&country.
func (s *Server) tableFor(c *gin.Context) (Table, error) {
	lat, lon := c.Query("latitude"), c.Query("longitude")
	city, country := c.Query("city"), c.Query("country")

	var loc provider.Location
	switch {
	case lat != "" || lon != "":
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil || la < -90 || la > 90 {
			return nil, errors.New("latitude must be a number between -90 and 90")
		}
		lo, err := strconv.ParseFloat(lon, 64)
		if err != nil || lo < -180 || lo > 180 {
			return nil, errors.New("longitude must be a number between -180 and 180")
		}
		loc = provider.Location{Mode: provider.ModeCoordinates, Lat: la, Lon: lo}
	case city != "" || country != "":
		if city == "" || country == "" {
			return nil, errors.New("city and country must be given together")
		}
		loc = provider.Location{Mode: provider.ModeCity, City: city, Country: country}
	default:
		return s.table, nil
	}

	if s.factory == nil {
		return nil, errOverrideDisabled
	}
	return s.factory(loc), nil
}
