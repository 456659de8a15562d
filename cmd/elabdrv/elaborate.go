// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opensynth/elabdrv/pkg/coordinator"
	"github.com/opensynth/elabdrv/pkg/diag"
	"github.com/opensynth/elabdrv/pkg/examplefrontend"
	"github.com/opensynth/elabdrv/pkg/frontend"
	"github.com/opensynth/elabdrv/pkg/ir"
	"github.com/opensynth/elabdrv/pkg/passthrough"
	"github.com/opensynth/elabdrv/pkg/util"
)

var elaborateCmd = &cobra.Command{
	Use:   "elaborate [flags] frontend-executable...",
	Short: "run one elaboration session across a set of remote frontends.",
	Long: `Spawn each named executable as a remote frontend speaking
JSON-RPC 2.0 over its stdin/stdout, register an optional pass-through
frontend over a previously elaborated design, and run one elaboration
session to completion.`,
	Run: runElaborate,
}

func init() {
	rootCmd.AddCommand(elaborateCmd)
	elaborateCmd.Flags().String("target", "", "opaque target/device-family information passed to every frontend")
	elaborateCmd.Flags().Bool("error-on-unknown-module", false, "report an error when no frontend provides a requested module")
	elaborateCmd.Flags().String("mode", "auto", "top-module selection mode: module, frontend, or auto")
	elaborateCmd.Flags().String("top-module", "", "top module name, for --mode=module")
	elaborateCmd.Flags().String("top-frontend", "", "top frontend id, for --mode=frontend")
	elaborateCmd.Flags().String("import", "", "path to a gob-encoded IR fragment to serve via the pass-through frontend")
	elaborateCmd.Flags().Bool("with-example-frontend", false, "register the built-in example gate-library frontend")
}

// lazyDriver lets this command build Remote frontends - which need a
// Driver at construction time, to service inbound calls for the life of
// the connection - before the Coordinator that will actually act as that
// Driver exists.  It is a CLI-local wiring shim, not a capability any
// library component needs: every other caller registers only built-in
// frontends, which receive their Driver on each call rather than at
// construction, so they have no "spawn processes, then build the driver
// that owns them" ordering problem.
type lazyDriver struct {
	c *coordinator.Coordinator
}

func (l *lazyDriver) Design() *ir.Design { return l.c.Design() }

func (l *lazyDriver) Route(ctx context.Context, source string, req frontend.Request) frontend.Response {
	return l.c.Route(ctx, source, req)
}

func (l *lazyDriver) MarkForUnresolvedProcessing(h ir.ModuleHandle) {
	l.c.MarkForUnresolvedProcessing(h)
}

// pipeConn adapts a subprocess's separate stdin/stdout pipes into the
// single io.ReadWriteCloser frontend.NewRemote expects.
type pipeConn struct {
	r io.ReadCloser
	w io.WriteCloser
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipeConn) Close() error {
	err := p.w.Close()
	if rerr := p.r.Close(); err == nil {
		err = rerr
	}

	return err
}

func runElaborate(cmd *cobra.Command, args []string) {
	if getFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}

	importPath := getString(cmd, "import")
	if len(args) == 0 && importPath == "" && !getFlag(cmd, "with-example-frontend") {
		fmt.Println(cmd.UsageString())
		os.Exit(1)
	}

	opts := coordinator.Options{
		Target:               getString(cmd, "target"),
		ErrorOnUnknownModule: getFlag(cmd, "error-on-unknown-module"),
	}

	switch getString(cmd, "mode") {
	case "module":
		opts.Selection = coordinator.ModuleBased
		opts.TopModule = ir.NewName(getString(cmd, "top-module"))
	case "frontend":
		opts.Selection = coordinator.FrontendBased
		opts.TopFrontend = getString(cmd, "top-frontend")
	default:
		opts.Selection = coordinator.Automatic
	}

	ld := &lazyDriver{}

	var (
		frontends []frontend.Frontend
		procs     []*exec.Cmd
	)

	for i, path := range args {
		proc, remote := spawnRemote(ld, i, path)
		procs = append(procs, proc)
		frontends = append(frontends, remote)
	}

	if getFlag(cmd, "with-example-frontend") {
		frontends = append(frontends, examplefrontend.New("example-gates"))
	}

	if importPath != "" {
		data, err := os.ReadFile(importPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		design, err := frontend.LoadDesign(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		frontends = append(frontends, passthrough.New("passthrough", design))
	}

	coord := coordinator.New(opts, frontends...)
	ld.c = coord

	design, err := coord.Run(context.Background())

	for _, proc := range procs {
		_ = proc.Process.Kill()
		_ = proc.Wait()
	}

	if err != nil {
		printDiagnostics(coord.Diagnostics())
		os.Exit(1)
	}

	fmt.Printf("elaborated %d modules\n", design.Len())
}

// printDiagnostics writes every accumulated diagnostic to stderr, one per
// line, colouring each line red when stderr is an interactive terminal.
// Piped or redirected output (CI logs, `| tee`) gets plain text, since the
// escape codes would otherwise show up as literal characters.
func printDiagnostics(diags []diag.Diagnostic) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.Error())
		}

		return
	}

	red := util.NewAnsiEscape().FgColour(util.TermRed).Build()
	reset := util.ResetAnsiEscape().Build()

	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", red, d.Error(), reset)
	}
}

func spawnRemote(drv frontend.Driver, index int, path string) (*exec.Cmd, *frontend.Remote) {
	proc := exec.Command(path)
	proc.Stderr = os.Stderr

	stdin, err := proc.StdinPipe()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	stdout, err := proc.StdoutPipe()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := proc.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "starting frontend %q: %s\n", path, err)
		os.Exit(2)
	}

	id := fmt.Sprintf("frontend-%d", index)
	conn := &pipeConn{r: stdout, w: stdin}

	return proc, frontend.NewRemote(id, conn, drv, false)
}
