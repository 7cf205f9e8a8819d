package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/gothread/thread"
)

type status string

const (
	statusPass status = "PASS"
	statusFail status = "FAIL"
	statusSkip status = "SKIP"
)

type result struct {
	name    string
	status  status
	err     error
	elapsed time.Duration
}

// selectScenarios returns the scenarios named in args, in declaration
// order, or all of them when args is empty.
func selectScenarios(args []string) ([]scenario, error) {
	if len(args) == 0 {
		return scenarios, nil
	}

	byName := lo.KeyBy(scenarios, func(sc scenario) string { return sc.name })
	unknown := lo.Uniq(lo.Reject(args, func(name string, _ int) bool {
		_, ok := byName[name]
		return ok
	}))
	if len(unknown) > 0 {
		names := lo.Map(scenarios, func(sc scenario, _ int) string { return sc.name })
		return nil, fmt.Errorf("unknown scenario(s): %v (have %v)", unknown, names)
	}

	wanted := lo.KeyBy(args, func(name string) string { return name })
	return lo.Filter(scenarios, func(sc scenario, _ int) bool {
		_, ok := wanted[sc.name]
		return ok
	}), nil
}

func runScenarios(cmd *cobra.Command, args []string) error {
	selected, err := selectScenarios(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	results, err := executeScenarios(cmd.Context(), selected, out)
	if err != nil {
		return err
	}

	for _, r := range results {
		switch r.status {
		case statusPass:
			fmt.Fprintf(out, "%s  %-11s %s\n", r.status, r.name, r.elapsed.Round(time.Microsecond))
		default:
			fmt.Fprintf(out, "%s  %-11s %v\n", r.status, r.name, r.err)
		}
	}

	byStatus := lo.GroupBy(results, func(r result) status { return r.status })
	fmt.Fprintf(out, "\n%d passed, %d failed, %d skipped\n",
		len(byStatus[statusPass]), len(byStatus[statusFail]), len(byStatus[statusSkip]))

	if failed := len(byStatus[statusFail]); failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}

// executeScenarios runs every scenario concurrently, each against its own
// runtime, and returns the results in input order.
func executeScenarios(ctx context.Context, selected []scenario, out io.Writer) ([]result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Created before the fan-out so process-wide options are settled
	// before any scenario takes a lock.
	base, err := thread.NewRuntime(cfg)
	if err != nil {
		return nil, err
	}
	defer base.Close()

	results := make([]result, len(selected))
	printLock := base.AllocateLock()

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, sc := range selected {
		g.Go(func() error {
			results[i] = runOne(gctx, sc, out, printLock)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func runOne(ctx context.Context, sc scenario, out io.Writer, printLock *thread.Lock) result {
	r := result{name: sc.name}

	rt, err := thread.NewRuntime(cfg)
	if err != nil {
		r.status, r.err = statusFail, err
		return r
	}
	defer rt.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	e := &env{rt: rt, out: out, print: printLock, verbose: verbose}
	start := time.Now()
	err = sc.run(ctx, e)
	r.elapsed = time.Since(start)

	switch {
	case err == nil:
		r.status = statusPass
	case errors.Is(err, errSkip):
		r.status, r.err = statusSkip, err
	default:
		r.status, r.err = statusFail, err
	}

	rt.Logger().WithField("scenario", sc.name).WithField("status", r.status).Debug("scenario finished")
	return r
}

func stackSize(cmd *cobra.Command, args []string) error {
	rt, err := thread.NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	info := thread.GetInfo()

	if len(args) == 0 {
		fmt.Fprintf(out, "current: %d\n", rt.StackSize())
		fmt.Fprintf(out, "minimum: %d\n", thread.MinStackSize)
		fmt.Fprintf(out, "supported: %t\n", info.StackSizeSupported)
		return nil
	}

	size, err := strconv.ParseInt(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", args[0], err)
	}

	_, err = rt.SetStackSize(int(size))
	switch {
	case err == nil:
		fmt.Fprintf(out, "stack_size(%d) ok, read back %d\n", size, rt.StackSize())
		return nil
	case thread.IsPlatformUnsupported(err):
		fmt.Fprintf(out, "stack_size(%d): not supported on %s\n", size, info.Platform)
		return nil
	default:
		return err
	}
}
