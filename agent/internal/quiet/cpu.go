package quiet

import "github.com/quietmark/quietmark/agent/internal/trace"

// CPUQuietPeriods inverts a long-task sequence into the ordered sequence of
// main-thread idle windows, shifted onto the absolute timeline.
//
// tasks must be sorted by start time with durations >= trace.MinLongTaskMs
// (see trace.NormalizeLongTasks). With no long tasks at all, the whole trace
// is one idle window.
//
// The window before the first task deliberately extends to that task's end,
// not its start: idle time is measured up to when the CPU first becomes busy
// and is free again. The scoring curve is calibrated against this boundary.
func CPUQuietPeriods(tasks []trace.LongTask, ts trace.Timestamps) []Period {
	if len(tasks) == 0 {
		return []Period{{Start: 0, End: ts.TraceEnd}}
	}

	periods := make([]Period, 0, len(tasks)+1)
	periods = append(periods, Period{
		Start: 0,
		End:   tasks[0].End + ts.NavigationStart,
	})
	for i := 0; i < len(tasks)-1; i++ {
		periods = append(periods, Period{
			Start: tasks[i].End + ts.NavigationStart,
			End:   tasks[i+1].Start + ts.NavigationStart,
		})
	}
	periods = append(periods, Period{
		Start: tasks[len(tasks)-1].End + ts.NavigationStart,
		End:   ts.TraceEnd,
	})
	return periods
}
