package panel

import "time"

// Status is the lifecycle status of a panel.
type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

// ViewState is what the view renders. Exactly one of the following holds:
//   - Status == StatusLoading, Snapshot == nil, Err == ""
//   - Status == StatusError, Snapshot == nil, Err != ""
//   - Status == StatusReady, Snapshot != nil, Err == ""
type ViewState struct {
	Status    Status
	Snapshot  *Snapshot
	Err       string
	Timeframe Timeframe
	// Token identifies the trigger that produced this state.
	Token     uint64
	UpdatedAt time.Time
}

func loadingState(tf Timeframe, token uint64) ViewState {
	return ViewState{Status: StatusLoading, Timeframe: tf, Token: token, UpdatedAt: time.Now()}
}

func errorState(tf Timeframe, token uint64, msg string) ViewState {
	if msg == "" {
		msg = GenericErrorMessage
	}
	return ViewState{Status: StatusError, Err: msg, Timeframe: tf, Token: token, UpdatedAt: time.Now()}
}

func readyState(tf Timeframe, token uint64, snap *Snapshot) ViewState {
	return ViewState{Status: StatusReady, Snapshot: snap, Timeframe: tf, Token: token, UpdatedAt: time.Now()}
}
