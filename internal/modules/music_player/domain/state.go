package domain

// PlaybackState is the engine state of one guild.
type PlaybackState int

const (
	StateIdle          PlaybackState = iota // no audio is bound; a lingering session may exist
	StateJoining                            // session requested, not yet streaming
	StatePlaying                            // head is streaming
	StatePaused                             // head is bound but paused
	StateTransitioning                      // head ended, next not yet started
	StateCleanup                            // session is being torn down
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateTransitioning:
		return "transitioning"
	case StateCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Trigger is something that happens to a guild's playback.
type Trigger int

const (
	TriggerStart       Trigger = iota // songs are waiting and playback should begin
	TriggerBound                      // audio was bound to the session
	TriggerConnectFail                // the session could not be opened
	TriggerStreamFail                 // every stream provider failed for the head
	TriggerPause                      // user paused
	TriggerResume                     // user resumed
	TriggerSkip                       // user skipped the head
	TriggerPrevious                   // user went back in history
	TriggerSongEnd                    // transport reported natural completion
	TriggerAdvance                    // songs remain after the head was settled
	TriggerExhausted                  // nothing left to play
	TriggerStop                       // user stopped playback
	TriggerDisconnect                 // platform dropped the session
	TriggerReap                       // idle timer expired
	TriggerCleanedUp                  // teardown finished
)

func (t Trigger) String() string {
	switch t {
	case TriggerStart:
		return "start"
	case TriggerBound:
		return "bound"
	case TriggerConnectFail:
		return "connect_fail"
	case TriggerStreamFail:
		return "stream_fail"
	case TriggerPause:
		return "pause"
	case TriggerResume:
		return "resume"
	case TriggerSkip:
		return "skip"
	case TriggerPrevious:
		return "previous"
	case TriggerSongEnd:
		return "song_end"
	case TriggerAdvance:
		return "advance"
	case TriggerExhausted:
		return "exhausted"
	case TriggerStop:
		return "stop"
	case TriggerDisconnect:
		return "disconnect"
	case TriggerReap:
		return "reap"
	case TriggerCleanedUp:
		return "cleaned_up"
	default:
		return "unknown"
	}
}

// Effect is the side effect the engine performs when taking a transition.
type Effect int

const (
	EffectNone       Effect = iota
	EffectBind              // open a session if needed and bind the head
	EffectReportJoin        // report the connection failure, keep the songs
	EffectDropHead          // remove the head that could not be streamed
	EffectPause             // pause the session
	EffectResume            // resume the session
	EffectSkipHead          // end the head early and settle it by loop mode
	EffectRewind            // put the latest history entry back at the head
	EffectSettleHead        // settle the naturally finished head by loop mode
	EffectArmReaper         // start the idle timer
	EffectTeardown          // clear the songs and close the session
	EffectDetach            // forget the dropped session, keep the songs
	EffectCloseIdle         // close a lingering session
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectBind:
		return "bind"
	case EffectReportJoin:
		return "report_join"
	case EffectDropHead:
		return "drop_head"
	case EffectPause:
		return "pause"
	case EffectResume:
		return "resume"
	case EffectSkipHead:
		return "skip_head"
	case EffectRewind:
		return "rewind"
	case EffectSettleHead:
		return "settle_head"
	case EffectArmReaper:
		return "arm_reaper"
	case EffectTeardown:
		return "teardown"
	case EffectDetach:
		return "detach"
	case EffectCloseIdle:
		return "close_idle"
	default:
		return "unknown"
	}
}

// Transition is the outcome of a trigger in a given state.
type Transition struct {
	Next   PlaybackState
	Effect Effect
}

type transitionKey struct {
	state   PlaybackState
	trigger Trigger
}

var transitions = map[transitionKey]Transition{
	{StateIdle, TriggerStart}:               {StateJoining, EffectBind},
	{StateIdle, TriggerPrevious}:            {StateTransitioning, EffectRewind},
	{StateIdle, TriggerReap}:                {StateCleanup, EffectCloseIdle},
	{StateIdle, TriggerStop}:                {StateCleanup, EffectTeardown},
	{StateIdle, TriggerDisconnect}:          {StateCleanup, EffectDetach},
	{StateJoining, TriggerBound}:            {StatePlaying, EffectNone},
	{StateJoining, TriggerConnectFail}:      {StateIdle, EffectReportJoin},
	{StateJoining, TriggerStreamFail}:       {StateTransitioning, EffectDropHead},
	{StateJoining, TriggerStop}:             {StateCleanup, EffectTeardown},
	{StateJoining, TriggerDisconnect}:       {StateCleanup, EffectDetach},
	{StatePlaying, TriggerPause}:            {StatePaused, EffectPause},
	{StatePlaying, TriggerSkip}:             {StateTransitioning, EffectSkipHead},
	{StatePlaying, TriggerPrevious}:         {StateTransitioning, EffectRewind},
	{StatePlaying, TriggerSongEnd}:          {StateTransitioning, EffectSettleHead},
	{StatePlaying, TriggerStreamFail}:       {StateTransitioning, EffectDropHead},
	{StatePlaying, TriggerStop}:             {StateCleanup, EffectTeardown},
	{StatePlaying, TriggerDisconnect}:       {StateCleanup, EffectDetach},
	{StatePaused, TriggerResume}:            {StatePlaying, EffectResume},
	{StatePaused, TriggerSkip}:              {StateTransitioning, EffectSkipHead},
	{StatePaused, TriggerPrevious}:          {StateTransitioning, EffectRewind},
	{StatePaused, TriggerSongEnd}:           {StateTransitioning, EffectSettleHead},
	{StatePaused, TriggerStreamFail}:        {StateTransitioning, EffectDropHead},
	{StatePaused, TriggerStop}:              {StateCleanup, EffectTeardown},
	{StatePaused, TriggerDisconnect}:        {StateCleanup, EffectDetach},
	{StateTransitioning, TriggerSongEnd}:    {StateTransitioning, EffectNone},
	{StateTransitioning, TriggerAdvance}:    {StateJoining, EffectBind},
	{StateTransitioning, TriggerExhausted}:  {StateIdle, EffectArmReaper},
	{StateTransitioning, TriggerStop}:       {StateCleanup, EffectTeardown},
	{StateTransitioning, TriggerDisconnect}: {StateCleanup, EffectDetach},
	{StateCleanup, TriggerCleanedUp}:        {StateIdle, EffectNone},
}

// NextTransition looks up what trigger t does in state s.
// It returns false when t is not valid in s.
func NextTransition(s PlaybackState, t Trigger) (Transition, bool) {
	tr, ok := transitions[transitionKey{s, t}]
	return tr, ok
}
