package types

// Card is one card as the server describes it. Identity inside a zone is
// ActionDataOverride, never the index: zones reorder between snapshots.
type Card struct {
	CardNumber         string `json:"cardNumber"`
	Action             int    `json:"action,omitempty"`
	ActionDataOverride string `json:"actionDataOverride,omitempty"`
	BorderColor        string `json:"borderColor,omitempty"`
	Overlay            string `json:"overlay,omitempty"`
	Counters           int    `json:"counters,omitempty"`
	LifeCounters       int    `json:"lifeCounters,omitempty"`
	Facing             string `json:"facing,omitempty"`
	Label              string `json:"label,omitempty"`
	IsBroken           bool   `json:"isBroken,omitempty"`
}

type Button struct {
	Mode        int    `json:"mode"`
	ButtonInput string `json:"buttonInput"`
	Caption     string `json:"caption,omitempty"`
}

type Player struct {
	Name           string `json:"name,omitempty"`
	Health         int    `json:"health"`
	ActionPoints   int    `json:"actionPoints"`
	PitchRemaining int    `json:"pitchRemaining"`
	DeckSize       int    `json:"deckSize"`
	Hand           []Card `json:"hand,omitempty"`
	Arsenal        []Card `json:"arsenal,omitempty"`
	Effects        []Card `json:"effects,omitempty"`
	Graveyard      []Card `json:"graveyard,omitempty"`
	Banished       []Card `json:"banished,omitempty"`
	Pitch          []Card `json:"pitch,omitempty"`
	Soul           []Card `json:"soul,omitempty"`
	Permanents     []Card `json:"permanents,omitempty"`
	Equipment      []Card `json:"equipment,omitempty"`
}

// PlayerPatch is a player sub-state as it arrives on the wire. Each zone is
// tracked separately so that a response carrying only some zones leaves the
// others alone.
type PlayerPatch struct {
	Name           Field[string] `json:"name"`
	Health         Field[int]    `json:"health"`
	ActionPoints   Field[int]    `json:"actionPoints"`
	PitchRemaining Field[int]    `json:"pitchRemaining"`
	DeckSize       Field[int]    `json:"deckSize"`
	Hand           Field[[]Card] `json:"hand"`
	Arsenal        Field[[]Card] `json:"arsenal"`
	Effects        Field[[]Card] `json:"effects"`
	Graveyard      Field[[]Card] `json:"graveyard"`
	Banished       Field[[]Card] `json:"banished"`
	Pitch          Field[[]Card] `json:"pitch"`
	Soul           Field[[]Card] `json:"soul"`
	Permanents     Field[[]Card] `json:"permanents"`
	Equipment      Field[[]Card] `json:"equipment"`
}

// Overlay returns p with every zone present in the patch replaced wholesale.
func (pp PlayerPatch) Overlay(p Player) Player {
	pp.Name.ApplyTo(&p.Name)
	pp.Health.ApplyTo(&p.Health)
	pp.ActionPoints.ApplyTo(&p.ActionPoints)
	pp.PitchRemaining.ApplyTo(&p.PitchRemaining)
	pp.DeckSize.ApplyTo(&p.DeckSize)
	pp.Hand.ApplyTo(&p.Hand)
	pp.Arsenal.ApplyTo(&p.Arsenal)
	pp.Effects.ApplyTo(&p.Effects)
	pp.Graveyard.ApplyTo(&p.Graveyard)
	pp.Banished.ApplyTo(&p.Banished)
	pp.Pitch.ApplyTo(&p.Pitch)
	pp.Soul.ApplyTo(&p.Soul)
	pp.Permanents.ApplyTo(&p.Permanents)
	pp.Equipment.ApplyTo(&p.Equipment)
	return p
}

type ChainLink struct {
	Attack       *Card   `json:"attackingCard,omitempty"`
	Reactions    []Card  `json:"reactions,omitempty"`
	AttackTarget string  `json:"attackTarget,omitempty"`
	TotalPower   int     `json:"totalPower"`
	TotalDefence int     `json:"totalDefence"`
	Damage       int     `json:"damagePrevention,omitempty"`
	GoAgain      bool    `json:"goAgain,omitempty"`
	Dominate     bool    `json:"dominate,omitempty"`
	Overpower    bool    `json:"overpower,omitempty"`
	Fused        *string `json:"fused,omitempty"`
}

type Layers struct {
	Active  bool   `json:"active"`
	Target  string `json:"target,omitempty"`
	Cards   []Card `json:"cardList,omitempty"`
	Reorder bool   `json:"reorderableLayers,omitempty"`
}

type TurnPhase struct {
	Phase   string `json:"turnPhase"`
	Caption string `json:"caption,omitempty"`
}

type PlayerPrompt struct {
	Helptext string   `json:"helpText,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// PlayerInputPopUp is the server-driven choice dialog.
type PlayerInputPopUp struct {
	Active        bool     `json:"active"`
	PopupID       string   `json:"popup,omitempty"`
	Title         string   `json:"title,omitempty"`
	Cards         []Card   `json:"popupCards,omitempty"`
	Buttons       []Button `json:"buttons,omitempty"`
	MultiChoice   bool     `json:"multiChooseText,omitempty"`
	FormOptions   []string `json:"formOptions,omitempty"`
	ChoiceOptions string   `json:"choiceOptions,omitempty"`
}

type Event struct {
	EventType  string `json:"eventType"`
	EventValue string `json:"eventValue,omitempty"`
}

type GameInfoPatch struct {
	LastUpdate Field[int64] `json:"lastUpdate"`
	LastPlayed Field[int64] `json:"lastPlayed"`
	TurnNo     Field[int]   `json:"turnNo"`
}

// Snapshot is one parsed sync response. Every top-level key is tracked for
// presence; keys the server omitted leave local state untouched.
type Snapshot struct {
	PlayerOne        Field[PlayerPatch]       `json:"playerOne"`
	PlayerTwo        Field[PlayerPatch]       `json:"playerTwo"`
	ActiveChainLink  Field[*ChainLink]        `json:"activeChainLink"`
	ActiveLayers     Field[*Layers]           `json:"activeLayers"`
	OldCombatChain   Field[[]Card]            `json:"oldCombatChain"`
	ChatLog          Field[[]string]          `json:"chatLog"`
	ActivePlayer     Field[int]               `json:"activePlayer"`
	TurnPhase        Field[*TurnPhase]        `json:"turnPhase"`
	PlayerInputPopUp Field[*PlayerInputPopUp] `json:"playerInputPopUp"`
	PlayerPrompt     Field[*PlayerPrompt]     `json:"playerPrompt"`
	CanPassPhase     Field[bool]              `json:"canPassPhase"`
	Events           Field[[]Event]           `json:"events"`
	GameInfo         Field[GameInfoPatch]     `json:"gameInfo"`
}
