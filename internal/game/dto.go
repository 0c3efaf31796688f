package game

import "blade-arena/internal/geom"

// BroadcastState is the per-tick snapshot pushed to room subscribers. The
// short keys are shared by the JSON and msgpack encodings.
type BroadcastState struct {
	Frame   int64       `json:"i" msgpack:"i"`
	Players []PlayerDTO `json:"p" msgpack:"p"`
	Bonuses []BonusDTO  `json:"b" msgpack:"b"`
	Dead    []PlayerDTO `json:"d" msgpack:"d"`
}

// EmptyState is the state of a room that has not ticked yet.
func EmptyState() BroadcastState {
	return BroadcastState{
		Players: []PlayerDTO{},
		Bonuses: []BonusDTO{},
		Dead:    []PlayerDTO{},
	}
}

type PlayerDTO struct {
	UserID      int        `json:"u" msgpack:"u"`
	Name        string     `json:"n" msgpack:"n"`
	Score       int        `json:"s" msgpack:"s"`
	Kills       int        `json:"k" msgpack:"k"`
	Deaths      int        `json:"x" msgpack:"x"`
	Position    [2]float64 `json:"p" msgpack:"p"`
	Destination [2]float64 `json:"d" msgpack:"d"`
	Health      float64    `json:"h" msgpack:"h"`
	Size        float64    `json:"z" msgpack:"z"`
	Blades      []BladeDTO `json:"b" msgpack:"b"`
}

type BladeDTO struct {
	Angle  float64 `json:"a" msgpack:"a"`
	Length float64 `json:"l" msgpack:"l"`
	Damage float64 `json:"d" msgpack:"d"`
}

type BonusDTO struct {
	Type     BonusType  `json:"t" msgpack:"t"`
	Position [2]float64 `json:"p" msgpack:"p"`
}

func vecDTO(v geom.Vec2) [2]float64 {
	return [2]float64{v.X, v.Y}
}
