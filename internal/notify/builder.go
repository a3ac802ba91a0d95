package notify

import (
	"fmt"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

// BuildSuccess renders the email sent when every stage succeeded.
func BuildSuccess(ev Event) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Good news!\n\n")
	fmt.Fprintf(&b, "Deployment pipeline run #%d completed successfully.\n\n", ev.RunNumber)
	writeDetails(&b, ev)
	fmt.Fprintf(&b, "\nThe new image is live on the production slot.\n")

	return Message{
		Subject: fmt.Sprintf("Pipeline SUCCESS - %s run #%d", ev.Pipeline, ev.RunNumber),
		Body:    b.String(),
	}
}

// BuildFailure renders the email sent when a stage failed.
func BuildFailure(ev Event) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Attention required.\n\n")
	fmt.Fprintf(&b, "Deployment pipeline run #%d FAILED.\n\n", ev.RunNumber)
	writeDetails(&b, ev)
	if ev.FailedStage != "" {
		fmt.Fprintf(&b, "Failed stage: %s\n", ev.FailedStage)
	}
	if ev.Err != nil {
		fmt.Fprintf(&b, "Error:        %v\n", ev.Err)
	}
	fmt.Fprintf(&b, "\nThe previously deployed image is still serving; please check the run logs.\n")

	return Message{
		Subject: fmt.Sprintf("Pipeline FAILURE - %s run #%d", ev.Pipeline, ev.RunNumber),
		Body:    b.String(),
	}
}

func writeDetails(b *strings.Builder, ev Event) {
	fmt.Fprintf(b, "Run number:   %d\n", ev.RunNumber)
	fmt.Fprintf(b, "Image:        %s\n", ev.Image)
	fmt.Fprintf(b, "Started:      %s\n", ev.StartedAt.Format(timestampLayout))
	fmt.Fprintf(b, "Finished:     %s\n", ev.FinishedAt.Format(timestampLayout))
	fmt.Fprintf(b, "Duration:     %s\n", ev.Duration().Round(time.Second))
}
