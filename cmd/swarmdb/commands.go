package main

import (
	"context"
	"fmt"
	"math"
	"slices"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/hupe1980/swarmdb"
	"github.com/hupe1980/swarmdb/archive"
	"github.com/hupe1980/swarmdb/codec"
	"github.com/hupe1980/swarmdb/ensemble"
	"github.com/hupe1980/swarmdb/model"
	"github.com/hupe1980/swarmdb/sorter"
)

func commands() []command {
	return []command{
		{
			name:    "sort",
			args:    "<raw log> <sorted log>",
			summary: "sort a raw log by time and system",
			run:     runSort,
		},
		{
			name:    "index",
			args:    "<log>",
			summary: "build or refresh the indexes of a sorted log",
			flags: func(fs *pflag.FlagSet) {
				fs.Bool("force", false, "rebuild indexes even when they are fresh")
			},
			run: runIndex,
		},
		{
			name:    "query",
			args:    "<log>",
			summary: "print the records matching a system and time range",
			flags: func(fs *pflag.FlagSet) {
				fs.String("sys", "", "system range: id, lo:hi, lo: or :hi")
				fs.String("time", "", "time range: t, lo:hi, lo: or :hi")
				fs.Int("limit", 0, "stop after n records (0 for all)")
				fs.Bool("json", false, "print one JSON object per record")
			},
			run: runQuery,
		},
		{
			name:    "snapshots",
			args:    "<log>",
			summary: "print the ensemble snapshots reconstructed from a log",
			flags: func(fs *pflag.FlagSet) {
				fs.String("time", "", "time range of snapshot records")
				snapshotFlags(fs)
			},
			run: runSnapshots,
		},
		{
			name:    "energy",
			args:    "<log>",
			summary: "report energy conservation over a run",
			flags: func(fs *pflag.FlagSet) {
				fs.Int("top", 5, "number of earliest-ending systems to list")
				snapshotFlags(fs)
			},
			run: runEnergy,
		},
		{
			name:    "stats",
			args:    "<log>",
			summary: "summarize a log",
			flags: func(fs *pflag.FlagSet) {
				fs.Bool("json", false, "print JSON")
			},
			run: runStats,
		},
		{
			name:    "push",
			args:    "<log>...",
			summary: "archive sorted logs to the configured blob store",
			flags: func(fs *pflag.FlagSet) {
				fs.String("compression", "", "none, lz4 or zstd (overrides archive.compression)")
			},
			run: runPush,
		},
		{
			name:    "pull",
			args:    "<run id> <dst> | --latest <name> <dst>",
			summary: "restore an archived run",
			flags: func(fs *pflag.FlagSet) {
				fs.Bool("latest", false, "pull the newest run recorded for a log name")
			},
			run: runPull,
		},
		{
			name:    "runs",
			summary: "list archived runs",
			run:     runRuns,
		},
	}
}

func snapshotFlags(fs *pflag.FlagSet) {
	fs.Float64("abs-err", 0, "absolute time tolerance of a snapshot window (default snapshot.abs_err)")
	fs.Float64("rel-err", 0, "relative time tolerance of a snapshot window (default snapshot.rel_err)")
}

// tolerances returns the window tolerances, preferring explicit flags.
func (e *env) tolerances(fs *pflag.FlagSet) (absErr, relErr float64) {
	absErr, relErr = e.cfg.Snapshot.AbsErr, e.cfg.Snapshot.RelErr
	if fs.Changed("abs-err") {
		absErr, _ = fs.GetFloat64("abs-err")
	}
	if fs.Changed("rel-err") {
		relErr, _ = fs.GetFloat64("rel-err")
	}
	return absErr, relErr
}

func (e *env) open(path string, opts ...swarmdb.Option) (*swarmdb.DB, error) {
	return swarmdb.Open(path, append([]swarmdb.Option{swarmdb.WithLogger(e.logger)}, opts...)...)
}

func (e *env) archiver(ctx context.Context, compression string) (*archive.Archiver, error) {
	if compression == "" {
		compression = e.cfg.Archive.Compression
	}
	c, err := archive.ParseCompression(compression)
	if err != nil {
		return nil, err
	}
	store, catalog, err := openArchive(ctx, e.cfg.Archive)
	if err != nil {
		return nil, err
	}
	return archive.New(store, func(o *archive.Options) {
		o.Prefix = e.cfg.Archive.Prefix
		o.Compression = c
		o.Catalog = catalog
		o.Concurrency = e.cfg.Archive.Concurrency
		o.Resources = e.cfg.resources()
		o.Logger = e.logger.Logger
		o.DBOptions = []swarmdb.Option{swarmdb.WithLogger(e.logger)}
	}), nil
}

func (e *env) printJSON(v any) error {
	data, err := codec.GoJSON{}.MarshalIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, string(data))
	return err
}

func runSort(ctx context.Context, e *env, fs *pflag.FlagSet) error {
	if fs.NArg() != 2 {
		return errUsage
	}
	res, err := sorter.Sort(fs.Arg(1), fs.Arg(0), func(o *sorter.Options) {
		o.Resources = e.cfg.resources()
	})
	e.logger.LogSort(ctx, fs.Arg(0), fs.Arg(1), res.Records, res.Elapsed, err)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "sorted %d records (%d bytes) in %s\n", res.Records, res.Bytes, res.Elapsed)
	return nil
}

func runIndex(_ context.Context, e *env, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errUsage
	}
	metrics := &swarmdb.BasicMetricsCollector{}
	opts := []swarmdb.Option{swarmdb.WithMetricsCollector(metrics)}
	if force, _ := fs.GetBool("force"); force {
		opts = append(opts, swarmdb.WithForceReindex())
	}
	db, err := e.open(fs.Arg(0), opts...)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(e.stdout, "%s: %d records, %d indexes rebuilt\n", db.Path(), db.Len(), metrics.GetStats().IndexRebuilds)
	return nil
}

type queryRow struct {
	Kind   string  `json:"kind"`
	Time   float64 `json:"time"`
	System int32   `json:"system"`
	Length int     `json:"length"`
}

func runQuery(_ context.Context, e *env, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errUsage
	}
	sysArg, _ := fs.GetString("sys")
	sys, err := parseSysRange(sysArg)
	if err != nil {
		return err
	}
	timeArg, _ := fs.GetString("time")
	t, err := parseTimeRange(timeArg)
	if err != nil {
		return err
	}
	limit, _ := fs.GetInt("limit")
	asJSON, _ := fs.GetBool("json")

	db, err := e.open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer db.Close()

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	if !asJSON {
		fmt.Fprintln(tw, "KIND\tTIME\tSYSTEM\tLENGTH")
	}

	cur := db.Query(sys, t)
	n := 0
	for r, ok := cur.Next(); ok; r, ok = cur.Next() {
		if limit > 0 && n == limit {
			break
		}
		n++
		tm, s := r.TimeSys()
		row := queryRow{Kind: r.Kind().String(), Time: tm, System: s, Length: r.Len()}
		if asJSON {
			data, err := codec.Default.Marshal(row)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.stdout, string(data))
			continue
		}
		fmt.Fprintf(tw, "%s\t%g\t%d\t%d\n", row.Kind, row.Time, row.System, row.Length)
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if asJSON {
		return nil
	}
	return tw.Flush()
}

func runSnapshots(_ context.Context, e *env, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errUsage
	}
	timeArg, _ := fs.GetString("time")
	t, err := parseTimeRange(timeArg)
	if err != nil {
		return err
	}
	absErr, relErr := e.tolerances(fs)

	db, err := e.open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer db.Close()

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tTIME\tACTIVE\tSYSTEMS\tBODIES\tENERGY")

	var ens ensemble.Ensemble
	it := db.Snapshots(t, absErr, relErr)
	for i := 0; ; i++ {
		ok, err := it.Next(&ens)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		active := ens.ActiveSet()
		windowEnd := ens.Time(int(active.Minimum()))

		energies := ensemble.TotalEnergy(&ens)
		var total float64
		for bits := active.Iterator(); bits.HasNext(); {
			total += energies[bits.Next()]
		}
		fmt.Fprintf(tw, "%d\t%g\t%d\t%d\t%d\t%.6e\n", i, windowEnd, active.GetCardinality(), ens.NumSys(), ens.NumBod(), total)
	}
	return tw.Flush()
}

func runEnergy(_ context.Context, e *env, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errUsage
	}
	top, _ := fs.GetInt("top")
	absErr, relErr := e.tolerances(fs)

	db, err := e.open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		ens      ensemble.Ensemble
		ref      *ensemble.Ensemble
		lastSeen = map[int]float64{}
		windows  int
	)
	it := db.Snapshots(model.All[float64](), absErr, relErr)
	for {
		ok, err := it.Next(&ens)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		windows++
		if ref == nil {
			ref = ens.Clone()
		}
		bits := ens.ActiveSet().Iterator()
		for bits.HasNext() {
			sys := int(bits.Next())
			lastSeen[sys] = ens.Time(sys)
		}
	}
	if ref == nil {
		return fmt.Errorf("%s: no snapshots", db.Path())
	}

	first := ref.ActiveSet()
	last := ens.ActiveSet()
	fmt.Fprintf(e.stdout, "windows:          %d\n", windows)
	fmt.Fprintf(e.stdout, "first snapshot:   t=%g systems=%d\n", ref.Time(int(first.Minimum())), first.GetCardinality())
	fmt.Fprintf(e.stdout, "last snapshot:    t=%g systems=%d\n", ens.Time(int(last.Minimum())), last.GetCardinality())

	maxErr, sys := ensemble.MaxEnergyError(&ens, ref)
	if sys < 0 {
		fmt.Fprintln(e.stdout, "max energy error: n/a (no system active in both snapshots)")
	} else {
		fmt.Fprintf(e.stdout, "max energy error: %.3e (system %d)\n", maxErr, sys)
	}

	systems := make([]int, 0, len(lastSeen))
	for s := range lastSeen {
		systems = append(systems, s)
	}
	slices.SortFunc(systems, func(a, b int) int {
		if lastSeen[a] != lastSeen[b] {
			if lastSeen[a] < lastSeen[b] {
				return -1
			}
			return 1
		}
		return a - b
	})
	if top > 0 && len(systems) > top {
		systems = systems[:top]
	}
	fmt.Fprintln(e.stdout, "earliest-ending systems:")
	for _, s := range systems {
		fmt.Fprintf(e.stdout, "  system %d last seen at t=%g\n", s, lastSeen[s])
	}
	return nil
}

func runStats(_ context.Context, e *env, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errUsage
	}
	db, err := e.open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := db.Stats()
	if err != nil {
		return err
	}
	if asJSON, _ := fs.GetBool("json"); asJSON {
		out := map[string]any{
			"path":          st.Path,
			"records":       st.Records,
			"system_events": st.SystemEvents,
			"systems":       st.Systems,
			"data_bytes":    st.DataBytes,
			"index_bytes":   st.IndexBytes,
		}
		if !math.IsNaN(st.FirstTime) {
			out["first_time"] = st.FirstTime
			out["last_time"] = st.LastTime
		}
		return e.printJSON(out)
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "path\t%s\n", st.Path)
	fmt.Fprintf(tw, "records\t%d\n", st.Records)
	fmt.Fprintf(tw, "system events\t%d\n", st.SystemEvents)
	fmt.Fprintf(tw, "systems\t%d\n", st.Systems)
	fmt.Fprintf(tw, "time span\t%g .. %g\n", st.FirstTime, st.LastTime)
	fmt.Fprintf(tw, "data bytes\t%d\n", st.DataBytes)
	fmt.Fprintf(tw, "index bytes\t%d\n", st.IndexBytes)
	return tw.Flush()
}

func runPush(ctx context.Context, e *env, fs *pflag.FlagSet) error {
	if fs.NArg() == 0 {
		return errUsage
	}
	compression, _ := fs.GetString("compression")
	a, err := e.archiver(ctx, compression)
	if err != nil {
		return err
	}
	ms, err := a.PushAll(ctx, fs.Args())
	for i, m := range ms {
		if m != nil {
			fmt.Fprintf(e.stdout, "%s\t%s\t%.2f\n", fs.Arg(i), m.RunID, m.Ratio())
		}
	}
	return err
}

func runPull(ctx context.Context, e *env, fs *pflag.FlagSet) error {
	if fs.NArg() != 2 {
		return errUsage
	}
	a, err := e.archiver(ctx, "")
	if err != nil {
		return err
	}

	var m *archive.Manifest
	if latest, _ := fs.GetBool("latest"); latest {
		m, err = a.PullLatest(ctx, fs.Arg(0), fs.Arg(1))
	} else {
		m, err = a.Pull(ctx, fs.Arg(0), fs.Arg(1))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s\t%s\t%d records\n", m.RunID, fs.Arg(1), m.Records)
	return nil
}

func runRuns(ctx context.Context, e *env, _ *pflag.FlagSet) error {
	a, err := e.archiver(ctx, "")
	if err != nil {
		return err
	}
	runs, err := a.Runs(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tNAME\tRECORDS\tBYTES\tCOMPRESSION\tCREATED")
	for _, id := range runs {
		m, err := a.Manifest(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", m.RunID, m.Name, m.Records, m.Size, m.Compression, m.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return tw.Flush()
}
