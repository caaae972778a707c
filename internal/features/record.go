package features

// Result labels of accepted games.
const (
	ResultWhiteWins = "1-0"
	ResultBlackWins = "0-1"
	ResultDraw      = "1/2-1/2"
)

// Outcome classes used as prediction targets.
const (
	ClassWhiteWins = 0
	ClassBlackWins = 1
	ClassDraw      = 2
)

// Time classes derived from the base time.
const (
	TimeClassBullet    = "bullet"
	TimeClassBlitz     = "blitz"
	TimeClassRapid     = "rapid"
	TimeClassClassical = "classical"
)

// MateScore is the saturating evaluation used for forced-mate annotations.
const MateScore = 100.0

// Record is the per-game feature vector written to the dataset.
type Record struct {
	Result      string `json:"result"`
	ResultClass int    `json:"result_class"`
	WhiteElo    int    `json:"white_elo"`
	BlackElo    int    `json:"black_elo"`
	EloDiff     int    `json:"elo_diff"`
	ECO         string `json:"eco"`
	OpeningName string `json:"opening_name,omitempty"`

	TimeControl      string `json:"time_control"`
	BaseTimeSeconds  *int   `json:"base_time_seconds,omitempty"`
	IncrementSeconds *int   `json:"increment_seconds,omitempty"`
	TimeClass        string `json:"time_class,omitempty"`

	Moves           []string  `json:"moves"`
	Evals           []float64 `json:"evals,omitempty"`
	FinalEval       *float64  `json:"final_eval,omitempty"`
	EngineEval      *float64  `json:"engine_eval,omitempty"`
	LegalMovesCount []int     `json:"legal_moves_count"`

	WhiteMaterial   int `json:"white_material"`
	BlackMaterial   int `json:"black_material"`
	MaterialBalance int `json:"material_balance"`

	WhiteCanCastle bool `json:"white_can_castle"`
	BlackCanCastle bool `json:"black_can_castle"`

	WhiteCenterControl int `json:"white_center_control"`
	BlackCenterControl int `json:"black_center_control"`
}

// ResultClass maps a result label to its outcome class.
func ResultClass(result string) (int, bool) {
	switch result {
	case ResultWhiteWins:
		return ClassWhiteWins, true
	case ResultBlackWins:
		return ClassBlackWins, true
	case ResultDraw:
		return ClassDraw, true
	}
	return 0, false
}
