package bus

import (
	"fmt"

	"github.com/careerpilot/agentcore/core"
)

// QueueLane names a dispatch queue at the job-runner boundary.
type QueueLane string

const (
	// LaneRealtime carries user-facing work (interview feedback, matches).
	LaneRealtime QueueLane = "realtime"
	// LaneBatch carries background work (market scans, resume ingestion).
	LaneBatch QueueLane = "batch"
)

// GlobalListenerJob is the job every user-scoped event is additionally
// fanned out to, so a single cross-cutting role can observe the full event
// stream without per-type handlers knowing about it.
const GlobalListenerJob = "career-coach-listener"

// Route is the static per-event-type routing metadata applied at publish
// time.
type Route struct {
	Priority    core.Priority
	SourceAgent string
	TargetAgent string
	Lane        QueueLane
}

// routes is the single source of truth mapping event types to routing
// metadata. Call sites never choose priority or targets themselves.
var routes = map[core.EventType]Route{
	core.EventMarketScanCompleted: {
		Priority:    core.PriorityLow,
		SourceAgent: "market_scanner",
		TargetAgent: "job_matcher",
		Lane:        LaneBatch,
	},
	core.EventInterviewCompleted: {
		Priority:    core.PriorityHigh,
		SourceAgent: "interview_runner",
		TargetAgent: "interview_analyzer",
		Lane:        LaneRealtime,
	},
	core.EventInterviewAnalyzed: {
		Priority:    core.PriorityHigh,
		SourceAgent: "interview_analyzer",
		TargetAgent: "career_coach",
		Lane:        LaneRealtime,
	},
	core.EventJobMatchesFound: {
		Priority:    core.PriorityMedium,
		SourceAgent: "job_matcher",
		TargetAgent: "career_coach",
		Lane:        LaneRealtime,
	},
	core.EventResumeParsed: {
		Priority:    core.PriorityMedium,
		SourceAgent: "resume_ingestor",
		TargetAgent: "job_matcher",
		Lane:        LaneBatch,
	},
	core.EventSkillGapDetected: {
		Priority:    core.PriorityMedium,
		SourceAgent: "job_matcher",
		TargetAgent: "career_coach",
		Lane:        LaneBatch,
	},
	core.EventApplicationSubmitted: {
		Priority:    core.PriorityHigh,
		SourceAgent: "application_runner",
		TargetAgent: "career_coach",
		Lane:        LaneRealtime,
	},
}

// RouteFor returns the static routing metadata for an event type.
func RouteFor(eventType core.EventType) (Route, error) {
	r, ok := routes[eventType]
	if !ok {
		return Route{}, fmt.Errorf("no route registered for event type %s", eventType)
	}
	return r, nil
}

// LaneFor is the pure event type to queue lane mapping used by the
// job-dispatch boundary.
func LaneFor(eventType core.EventType) QueueLane {
	if r, ok := routes[eventType]; ok {
		return r.Lane
	}
	return LaneBatch
}
