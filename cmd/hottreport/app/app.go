package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/hott-telemetry/internal/flight"
	"github.com/roman-kulish/hott-telemetry/internal/storage"
)

// Report is everything printed about one session.
type Report struct {
	Session  *flight.Session     `json:"session"`
	Sensors  []flight.SensorStat `json:"sensors"`
	Laps     []flight.Lap        `json:"laps,omitempty"`
	Samples  int64               `json:"samples"`
	Loss     *LossHistogram      `json:"loss,omitempty"`
	Channels []ChannelStat       `json:"channels,omitempty"`
}

func Run(ctx context.Context, config *Config, out io.Writer, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	if config.List {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return err
		}
		if config.Format == OutputJSON {
			return writeJSON(out, sessions)
		}
		return writeSessions(out, sessions)
	}

	report, err := buildReport(ctx, store, config, logger)
	if err != nil {
		return err
	}
	if config.Format == OutputJSON {
		return writeJSON(out, report)
	}
	return writeReport(out, report)
}

func buildReport(ctx context.Context, store *storage.SqliteStore, config *Config, logger *slog.Logger) (*Report, error) {
	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %d: %w", config.SessionID, err)
	}
	r := &Report{Session: session}

	if r.Sensors, err = store.SensorStats(ctx, session.ID); err != nil {
		return nil, err
	}
	if r.Laps, err = store.Laps(ctx, session.ID); err != nil {
		return nil, err
	}

	var opts []storage.ReaderOption
	var filters []any
	switch {
	case config.StartTimeMs != nil && config.EndTimeMs != nil:
		opts = append(opts, storage.WithTimeRange(*config.StartTimeMs, *config.EndTimeMs))
		filters = append(filters, slog.Int64("fromMs", *config.StartTimeMs), slog.Int64("toMs", *config.EndTimeMs))

	case config.StartTimeMs != nil:
		opts = append(opts, storage.WithStartTime(*config.StartTimeMs))
		filters = append(filters, slog.Int64("fromMs", *config.StartTimeMs))

	case config.EndTimeMs != nil:
		opts = append(opts, storage.WithEndTime(*config.EndTimeMs))
		filters = append(filters, slog.Int64("toMs", *config.EndTimeMs))
	}
	logger.Debug("reader configuration", filters...)

	iter, err := store.ReadSamples(ctx, session.ID, opts...)
	if errors.Is(err, storage.ErrNoData) {
		logger.Warn("session has no stored samples", slog.Int64("session", session.ID))
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	data := NewChannelData(channelNames(session))
	for iter.Next(ctx) {
		data.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return nil, err
	}

	r.Samples = data.Samples
	r.Loss = data.Loss
	r.Channels = data.Stats(config.AllChannels)
	return r, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSessions(out io.Writer, sessions []*flight.Session) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tKIND\tFORMAT\tSENSORS\tDURATION\tSAMPLES\tLOSS\tSOURCE")
	for _, s := range sessions {
		duration, samples, loss := "-", "-", "-"
		if s.Summary != nil {
			duration = formatDuration(s.Summary.DurationMs)
			samples = humanize.Comma(s.Summary.Emitted)
			loss = fmt.Sprintf("%.1f%%", s.Summary.LossPercent)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, humanize.Time(s.StartTime), s.Kind, s.Format, s.Sensors, duration, samples, loss, s.Source)
	}
	return w.Flush()
}

func writeReport(out io.Writer, r *Report) error {
	s := r.Session
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Session\t%d (%s)\n", s.ID, s.Kind)
	fmt.Fprintf(w, "Source\t%s\n", s.Source)
	fmt.Fprintf(w, "Format\t%s\n", s.Format)
	fmt.Fprintf(w, "Started\t%s (%s)\n", s.StartTime.Local().Format(time.DateTime), humanize.Time(s.StartTime))
	fmt.Fprintf(w, "Sensors\t%s, %s plan\n", s.Sensors, s.Plan)

	if sum := s.Summary; sum != nil {
		fmt.Fprintf(w, "Duration\t%s\n", formatDuration(sum.DurationMs))
		fmt.Fprintf(w, "Blocks\t%s, %s lost (%.2f%%)\n", humanize.Comma(sum.Blocks), humanize.Comma(sum.Lost), sum.LossPercent)
		if sum.LossRuns > 0 {
			fmt.Fprintf(w, "Loss runs\t%s, min %d, max %d, mean %.1f, sigma %.1f blocks\n",
				humanize.Comma(sum.LossRuns), sum.LossRunMin, sum.LossRunMax, sum.LossRunMean, sum.LossRunStdDev)
		}
		fmt.Fprintf(w, "Samples\t%s\n", humanize.Comma(sum.Emitted))
		if sum.SampledSlots > 0 {
			fmt.Fprintf(w, "Sampling\t%s readings in %s slots (%s per slot)\n",
				humanize.Comma(sum.SampledReadings), humanize.Comma(sum.SampledSlots),
				humanize.FtoaWithDigits(float64(sum.Emitted)/float64(sum.SampledSlots), 2))
		}
	} else {
		fmt.Fprintln(w, "Status\tunfinished")
	}

	if len(r.Sensors) > 0 {
		fmt.Fprintln(w, "\nSENSOR\tACCEPTED\tREJECTED\tMIGRATIONS")
		for _, st := range r.Sensors {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Sensor,
				humanize.Comma(st.Accepted), humanize.Comma(st.Rejected), humanize.Comma(st.Migrations))
		}
	}

	if len(r.Laps) > 0 {
		fmt.Fprintln(w, "\nLAP\tTIME")
		for _, lap := range r.Laps {
			name := string(lap.Kind)
			if lap.Kind == flight.LapRegular {
				name = fmt.Sprintf("%d", lap.Number)
			}
			fmt.Fprintf(w, "%s\t%s\n", name, lap.Time)
		}
	}

	if r.Loss != nil && r.Loss.Total > 0 {
		fmt.Fprintf(w, "\nLOSS\tSAMPLES\t(median below %d%%, 95th below %d%%)\n", r.Loss.Percentile(50), r.Loss.Percentile(95))
		for bin, n := range r.Loss.Bins {
			if n == 0 {
				continue
			}
			label := fmt.Sprintf("%d-%d%%", bin*10, bin*10+9)
			if bin == lossBins-1 {
				label = "100%"
			}
			fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", label, humanize.Comma(n), 100*float64(n)/float64(r.Loss.Total))
		}
	}

	if len(r.Channels) > 0 {
		fmt.Fprintln(w, "\nCHANNEL\tMIN\tMAX\tMEAN")
		for _, c := range r.Channels {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name,
				humanize.FtoaWithDigits(c.Min, 3), humanize.FtoaWithDigits(c.Max, 3), humanize.FtoaWithDigits(c.Mean, 3))
		}
	}

	return w.Flush()
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(10 * time.Millisecond).String()
}
