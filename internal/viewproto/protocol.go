// Package viewproto defines the JSON messages exchanged with replay viewers.
package viewproto

import "matchreplay.ai/internal/sim/gameworld"

// Version is the viewer protocol version.
const Version = "1.0"

const (
	TypeSeek  = "SEEK"
	TypeStep  = "STEP"
	TypeBack  = "BACK"
	TypeFrame = "FRAME"
	TypeError = "ERROR"
)

// Client -> Server. SEEK jumps to Round; STEP and BACK move one round.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Round           int32  `json:"round,omitempty"`
}

// Server -> Client. One full view of the World at a round.
type FrameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Match           string `json:"match"`
	Round           int32  `json:"round"`
	MaxRound        int32  `json:"max_round"`
	Winner          int32  `json:"winner,omitempty"`

	Bodies  []BodyState             `json:"bodies"`
	Died    []DeadBody              `json:"died"`
	Dots    []Dot                   `json:"dots"`
	Lines   []Line                  `json:"lines"`
	Teams   []gameworld.TeamSummary `json:"teams"`
	Islands []IslandState           `json:"islands"`
	Wells   []WellState             `json:"wells"`
	Effects []EffectState           `json:"effects"`
}

type BodyState struct {
	ID        int32    `json:"id"`
	Team      int32    `json:"team"`
	Type      string   `json:"type"`
	Pos       [2]int32 `json:"pos"`
	HP        int32    `json:"hp"`
	Bytecodes int32    `json:"bytecodes"`

	Action string    `json:"action"`
	Target *[2]int32 `json:"target,omitempty"`

	Carrying  [3]int32 `json:"carrying"`
	Anchors   [2]int32 `json:"anchors"`
	Indicator string   `json:"indicator,omitempty"`
}

type DeadBody struct {
	ID  int32    `json:"id"`
	Pos [2]int32 `json:"pos"`
}

type Dot struct {
	Robot int32    `json:"robot"`
	Pos   [2]int32 `json:"pos"`
	RGB   [3]int32 `json:"rgb"`
}

type Line struct {
	Robot int32    `json:"robot"`
	From  [2]int32 `json:"from"`
	To    [2]int32 `json:"to"`
	RGB   [3]int32 `json:"rgb"`
}

type IslandState struct {
	ID           int32 `json:"id"`
	Owner        int32 `json:"owner"`
	FlipProgress int32 `json:"flip_progress"`
	Accelerated  bool  `json:"accelerated,omitempty"`
	Cells        int   `json:"cells"`
}

type WellState struct {
	Pos      [2]int32 `json:"pos"`
	Resource int32    `json:"resource"`
	Amounts  [3]int32 `json:"amounts"`
	Upgraded bool     `json:"upgraded,omitempty"`
}

type EffectState struct {
	Kind           string   `json:"kind"`
	Team           int32    `json:"team"`
	Pos            [2]int32 `json:"pos"`
	TurnsRemaining int32    `json:"turns_remaining"`
}

// Server -> Client. Sent when a command cannot be served.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string     `json:"protocol_version"`
	Match           string     `json:"match"`
	Round           int32      `json:"round"`
	MaxRound        int32      `json:"max_round"`
	Winner          int32      `json:"winner,omitempty"`
	Map             MapInfo    `json:"map"`
	Teams           []TeamInfo `json:"teams"`
	BodyTypes       []string   `json:"body_types"`
}

type MapInfo struct {
	Name      string `json:"name"`
	Width     int32  `json:"width"`
	Height    int32  `json:"height"`
	Symmetry  int32  `json:"symmetry"`
	Seed      int32  `json:"seed"`
	MaxRounds int32  `json:"max_rounds"`
	// Walls lists wall cell indices.
	Walls []int32 `json:"walls"`
}

type TeamInfo struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	PackageName string `json:"package_name"`
}
