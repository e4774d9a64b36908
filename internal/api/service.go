// Package api exposes a small read-only HTTP view of the ladder for
// community websites and dashboards.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/blademasters/bladebot/internal/config"
	"github.com/blademasters/bladebot/internal/ledger"
	"github.com/blademasters/bladebot/internal/models"
)

type Service struct {
	config *config.Config
	ledger *ledger.Ledger
}

func NewService(cfg *config.Config, ldg *ledger.Ledger) *Service {
	return &Service{config: cfg, ledger: ldg}
}

// Register mounts all routes on the echo instance.
func (s *Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.HandleHealth())
	e.GET("/leaderboard", s.HandleLeaderboard())
	e.GET("/users/:discord_id", s.HandleUser())
	e.GET("/ranks", s.HandleRanks())
	e.GET("/rank_changes/pending", s.HandlePendingRankChanges())
}

func (s *Service) HandleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}

type userView struct {
	DiscordID   string  `json:"discord_id"`
	DisplayName string  `json:"display_name"`
	Tier        string  `json:"tier"`
	Numeral     string  `json:"numeral,omitempty"`
	Rating      int     `json:"rating"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	GamesPlayed int     `json:"games_played"`
	WinRate     float64 `json:"win_rate"`
	Reserve     bool    `json:"reserve"`
}

func viewOf(u *models.User) userView {
	return userView{
		DiscordID:   u.DiscordID,
		DisplayName: u.DisplayName,
		Tier:        u.Tier,
		Numeral:     u.Numeral,
		Rating:      u.Rating,
		Wins:        u.Wins,
		Losses:      u.Losses,
		GamesPlayed: u.GamesPlayed,
		WinRate:     u.WinRate(),
		Reserve:     u.IsReserve(),
	}
}

func (s *Service) HandleLeaderboard() echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 25
		if raw := c.QueryParam("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 100"})
			}
			limit = parsed
		}

		users, err := s.ledger.Leaderboard(c.Request().Context(), limit)
		if err != nil {
			logrus.Errorf("failed to fetch leaderboard: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch leaderboard"})
		}

		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, viewOf(u))
		}
		return c.JSON(http.StatusOK, views)
	}
}

func (s *Service) HandleUser() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := s.ledger.GetUserByDiscordID(c.Request().Context(), c.Param("discord_id"))
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
			}
			logrus.Errorf("failed to fetch user: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
		}
		return c.JSON(http.StatusOK, viewOf(user))
	}
}

func (s *Service) HandleRanks() echo.HandlerFunc {
	type slotView struct {
		Tier      string `json:"tier"`
		Numeral   string `json:"numeral"`
		Occupancy int    `json:"occupancy"`
		Capacity  int    `json:"capacity"`
		Full      bool   `json:"full"`
	}

	return func(c echo.Context) error {
		slots, err := s.ledger.RankDistribution(c.Request().Context())
		if err != nil {
			logrus.Errorf("failed to fetch rank distribution: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch ranks"})
		}

		views := make([]slotView, 0, len(slots))
		for _, slot := range slots {
			views = append(views, slotView{
				Tier:      slot.Rank.Tier,
				Numeral:   slot.Rank.Numeral,
				Occupancy: slot.Occupancy,
				Capacity:  slot.Capacity,
				Full:      slot.Full(),
			})
		}
		return c.JSON(http.StatusOK, views)
	}
}

func (s *Service) HandlePendingRankChanges() echo.HandlerFunc {
	type changeView struct {
		ID        uint   `json:"id"`
		MatchID   uint   `json:"match_id"`
		WinnerID  string `json:"winner_id"`
		LoserID   string `json:"loser_id"`
		WinnerNew string `json:"winner_new_rank"`
		LoserNew  string `json:"loser_new_rank"`
	}

	return func(c echo.Context) error {
		changes, err := s.ledger.PendingRankChanges(c.Request().Context())
		if err != nil {
			logrus.Errorf("failed to fetch pending rank changes: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch rank changes"})
		}

		views := make([]changeView, 0, len(changes))
		for _, ch := range changes {
			views = append(views, changeView{
				ID:        ch.ID,
				MatchID:   ch.MatchID,
				WinnerID:  ch.WinnerID,
				LoserID:   ch.LoserID,
				WinnerNew: ch.WinnerNewTier + " " + ch.WinnerNewNumeral,
				LoserNew:  ch.LoserNewTier + " " + ch.LoserNewNumeral,
			})
		}
		return c.JSON(http.StatusOK, views)
	}
}
