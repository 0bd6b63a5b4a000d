package server

import (
	"net/url"

	"github.com/gorilla/schema"

	"github.com/vancomm/minesweeper/internal/mines"
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

// NewGameDTO fields left out of the query keep the configured defaults.
type NewGameDTO struct {
	Rows  int `schema:"rows"`
	Cols  int `schema:"cols"`
	Mines int `schema:"mines"`
}

func ParseNewGameDTO(src url.Values, defaults mines.Params) (mines.Params, error) {
	dto := NewGameDTO{
		Rows:  defaults.Rows,
		Cols:  defaults.Cols,
		Mines: defaults.MineCount,
	}
	if err := decoder.Decode(&dto, src); err != nil {
		return mines.Params{}, err
	}
	p := mines.Params{Rows: dto.Rows, Cols: dto.Cols, MineCount: dto.Mines}
	return p, p.Validate()
}

type MoveDTO struct {
	Row    int    `schema:"row,required"`
	Col    int    `schema:"col,required"`
	Action string `schema:"action,required"`
}

func ParseMoveDTO(src url.Values) (MoveDTO, error) {
	var dto MoveDTO
	err := decoder.Decode(&dto, src)
	return dto, err
}

type HighscoresDTO struct {
	Rows  int `schema:"rows"`
	Cols  int `schema:"cols"`
	Mines int `schema:"mines"`
	Limit int `schema:"limit"`
}

func ParseHighscoresDTO(src url.Values) (HighscoresDTO, error) {
	var dto HighscoresDTO
	err := decoder.Decode(&dto, src)
	return dto, err
}

// Board is set only when the query names a complete board.
func (dto HighscoresDTO) Board() *mines.Params {
	if dto.Rows <= 0 || dto.Cols <= 0 {
		return nil
	}
	return &mines.Params{Rows: dto.Rows, Cols: dto.Cols, MineCount: dto.Mines}
}

// GameDTO is what clients see of a session. Grid rows hold one glyph per
// cell.
type GameDTO struct {
	GameID    string   `json:"game_id"`
	Rows      int      `json:"rows"`
	Cols      int      `json:"cols"`
	MineCount int      `json:"mine_count"`
	Grid      []string `json:"grid"`
	Revealed  int      `json:"revealed"`
	Flags     int      `json:"flags"`
	Moves     int      `json:"moves"`
	Won       bool     `json:"won"`
	Lost      bool     `json:"lost"`
	StartedAt int64    `json:"started_at"`
	EndedAt   *int64   `json:"ended_at,omitempty"`
}

// newGameDTO expects the session lock to be held.
func newGameDTO(s *Session) GameDTO {
	b := s.board
	won := b.CheckWin()
	lost := b.IsGameOver()

	grid := b.Render()
	if won || lost {
		grid = b.Solution()
	}

	var endedAt *int64
	if !s.endedAt.IsZero() {
		e := s.endedAt.UnixMilli()
		endedAt = &e
	}

	return GameDTO{
		GameID:    s.ID.String(),
		Rows:      b.Rows(),
		Cols:      b.Cols(),
		MineCount: b.MineCount(),
		Grid:      grid.Rows(),
		Revealed:  b.Revealed(),
		Flags:     b.Flags(),
		Moves:     s.moves,
		Won:       won,
		Lost:      lost,
		StartedAt: s.startedAt.UnixMilli(),
		EndedAt:   endedAt,
	}
}

type NewGameResponse struct {
	Game  GameDTO `json:"game"`
	Token string  `json:"token"`
}

type MoveResponse struct {
	Game    GameDTO       `json:"game"`
	Outcome mines.Outcome `json:"outcome,omitempty"`
	Message string        `json:"message,omitempty"`
}

func newMoveResponse(g GameDTO, o mines.Outcome) MoveResponse {
	return MoveResponse{Game: g, Outcome: o, Message: o.Message()}
}
