package protocol

// WATCH (client -> server). Empty filters watch every mob.
type WatchMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	MobIDs          []string `json:"mob_ids,omitempty"`
	Kinds           []string `json:"kinds,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	WorldID         string `json:"world_id"`
	TickRateHz      int    `json:"tick_rate_hz"`
	EvalInterval    int    `json:"eval_interval"`
	Tick            uint64 `json:"tick"`
}

// ERROR (server -> client), sent before the server closes a bad session.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// GOALS (server -> client), one frame per tick.
type GoalsMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	WorldID         string          `json:"world_id"`
	Tick            uint64          `json:"tick"`
	Mobs            []MobGoals      `json:"mobs"`
	Transitions     []TransitionRef `json:"transitions,omitempty"`
}

type MobGoals struct {
	ID       string        `json:"id"`
	Kind     string        `json:"kind"`
	Pos      [3]int        `json:"pos"`
	HP       int           `json:"hp"`
	Target   string        `json:"target,omitempty"`
	Disabled []string      `json:"disabled,omitempty"`
	Goals    []RunningGoal `json:"goals"`
	Targets  []RunningGoal `json:"targets"`
}

type RunningGoal struct {
	Priority int      `json:"priority"`
	Name     string   `json:"name"`
	Flags    []string `json:"flags"`
}

type TransitionRef struct {
	MobID    string   `json:"mob_id"`
	Selector string   `json:"selector"`
	Kind     string   `json:"kind"`
	Reason   string   `json:"reason,omitempty"`
	Priority int      `json:"priority"`
	Name     string   `json:"name"`
	Flags    []string `json:"flags,omitempty"`
	Error    string   `json:"error,omitempty"`
}
