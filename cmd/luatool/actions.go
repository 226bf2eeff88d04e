package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/buckleypaul/luatool/internal/config"
	"github.com/buckleypaul/luatool/internal/device"
	"github.com/buckleypaul/luatool/internal/store"
	"github.com/buckleypaul/luatool/internal/transport"
	"github.com/buckleypaul/luatool/internal/ui"
)

// openConn is replaced in tests.
var openConn = func(c config.Config) (transport.Conn, error) {
	return transport.Open(transport.Options{
		Port:          c.Port,
		BaudRate:      c.BaudRate,
		TelnetHost:    c.TelnetHost,
		TelnetPort:    c.TelnetPort,
		ReadTimeout:   c.ReadTimeout.Duration,
		TelnetTimeout: c.TelnetTimeout.Duration,
	})
}

// withDevice opens the configured connection, runs fn and closes the
// connection on every path.
func withDevice(fn func(d *device.Device, target string) error) error {
	conn, err := openConn(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.WithError(err).Warn("closing connection failed")
		}
	}()
	log.Infof("connected to %s", conn)

	d := device.New(device.NewChannel(conn, conn.Wait()))
	d.SetProgress(console)
	return fn(d, conn.String())
}

func listAction(*cli.Context) error {
	return withDevice(func(d *device.Device, _ string) error {
		catalog, err := d.ListFiles()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout)
		if compact {
			fmt.Fprintln(stdout, ui.CatalogPanel(catalog, 60))
			return nil
		}
		for _, line := range ui.CatalogLines(catalog) {
			fmt.Fprintln(stdout, line)
		}
		return nil
	})
}

func wipeAction(*cli.Context) error {
	return withDevice(func(d *device.Device, target string) error {
		removed, err := d.Wipe()
		rec := store.WipeRecord{Target: target, Removed: removed, Timestamp: time.Now(), Success: err == nil}
		if err != nil {
			rec.Error = err.Error()
		}
		if _, serr := st.AddWipe(rec); serr != nil {
			log.WithError(serr).Warn("recording wipe failed")
		}
		if err != nil {
			return err
		}
		console.Done()
		return nil
	})
}

func removeAction(ctx *cli.Context) error {
	name, err := trailingFlags(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("remove: missing FILENAME")
	}
	return withDevice(func(d *device.Device, _ string) error {
		if err := d.Remove(name); err != nil {
			return err
		}
		console.Done()
		return nil
	})
}

func uploadAction(ctx *cli.Context) error {
	path, err := trailingFlags(ctx)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("upload: missing FILENAME")
	}
	dest := ctx.String("dest")
	if dest == "" {
		dest = filepath.Base(path)
	}
	sess := device.Session{
		Source:  path,
		Dest:    dest,
		Append:  ctx.Bool("append"),
		Compile: ctx.Bool("compile"),
		Restart: ctx.Bool("restart"),
		Run:     ctx.Bool("dofile"),
	}

	if sess.Append {
		warnIfLastFailed(sess.Dest)
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	return withDevice(func(d *device.Device, target string) error {
		log.Info("Upload starting")
		start := time.Now()
		rep, err := d.Upload(src, sess)
		recordUpload(target, sess, rep, time.Since(start), err)
		if err != nil {
			if !errors.Is(err, device.ErrLineTooLong) && !errors.Is(err, device.ErrFraming) {
				console.RetryHint()
			}
			return err
		}
		console.Done()
		return nil
	})
}

// trailingFlags returns the first positional argument and applies any of
// the command's flags written after it, which the flag parser leaves in
// Args. Anything else after the positional argument is an error.
func trailingFlags(ctx *cli.Context) (string, error) {
	args := ctx.Args().Slice()
	if len(args) == 0 {
		return "", nil
	}
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		if len(arg) < 2 || arg[0] != '-' {
			return "", fmt.Errorf("%s: unexpected argument %q", ctx.Command.Name, arg)
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		flag := lookupFlag(ctx.Command.Flags, name)
		if flag == nil {
			return "", fmt.Errorf("%s: unknown flag %s", ctx.Command.Name, arg)
		}
		if _, isBool := flag.(*cli.BoolFlag); isBool {
			if !hasValue {
				value = "true"
			}
		} else if !hasValue {
			if i+1 >= len(rest) {
				return "", fmt.Errorf("%s: flag %s needs a value", ctx.Command.Name, arg)
			}
			i++
			value = rest[i]
		}
		if err := ctx.Set(flag.Names()[0], value); err != nil {
			return "", fmt.Errorf("%s: flag %s: %w", ctx.Command.Name, arg, err)
		}
	}
	return args[0], nil
}

func lookupFlag(flags []cli.Flag, name string) cli.Flag {
	for _, f := range flags {
		for _, n := range f.Names() {
			if n == name {
				return f
			}
		}
	}
	return nil
}

// warnIfLastFailed flags appending onto a file whose previous upload from
// this workspace did not finish.
func warnIfLastFailed(dest string) {
	last, ok, err := st.LastUpload(dest)
	if err != nil {
		log.WithError(err).Debug("reading upload history failed")
		return
	}
	if ok && !last.Success {
		log.Warnf("last upload to %s failed at %s: %s", dest, last.Timestamp.Format(time.DateTime), last.Error)
	}
}

func recordUpload(target string, sess device.Session, rep device.Report, took time.Duration, err error) {
	rec := store.UploadRecord{
		Target:    target,
		Source:    sess.Source,
		Dest:      sess.Dest,
		Artifact:  rep.Artifact,
		Lines:     rep.Lines,
		Bytes:     rep.Bytes,
		Append:    sess.Append,
		Compile:   sess.Compile,
		Timestamp: time.Now(),
		Success:   err == nil,
		Duration:  took.Round(time.Millisecond).String(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if _, serr := st.AddUpload(rec); serr != nil {
		log.WithError(serr).Warn("recording upload failed")
	}
}

func portsAction(*cli.Context) error {
	ports, err := transport.ListPorts()
	if err != nil {
		return fmt.Errorf("failed to list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(stdout, "No serial ports found")
		return nil
	}
	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, []string{p.Name, p.USBID(), p.Product, p.SerialNumber})
	}
	fmt.Fprintln(stdout, ui.Table([]string{"PORT", "USB ID", "PRODUCT", "SERIAL"}, rows))
	return nil
}

func historyAction(*cli.Context) error {
	uploads, err := st.Uploads()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	wipes, err := st.Wipes()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(uploads) == 0 && len(wipes) == 0 {
		fmt.Fprintln(stdout, "No history yet")
		return nil
	}
	var rows [][]string
	for _, u := range uploads {
		rows = append(rows, []string{
			u.Timestamp.Format(time.DateTime), "upload", u.Source + " -> " + u.Artifact,
			strconv.Itoa(u.Lines), u.Duration, result(u.Success, u.Error),
		})
	}
	for _, w := range wipes {
		rows = append(rows, []string{
			w.Timestamp.Format(time.DateTime), "wipe", strings.Join(w.Removed, ","),
			"-", "-", result(w.Success, w.Error),
		})
	}
	fmt.Fprintln(stdout, ui.Table([]string{"TIME", "OP", "FILE", "LINES", "TOOK", "RESULT"}, rows))
	return nil
}

func result(ok bool, msg string) string {
	if ok {
		return "ok"
	}
	return "failed: " + msg
}

func configAction(ctx *cli.Context) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(data))
	if !ctx.Bool("save") {
		return nil
	}
	if err := config.Save(cfg, wsRoot, ctx.Bool("global")); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
