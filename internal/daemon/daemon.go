package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/bus"
	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/notify"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
	"github.com/leonardotrapani/voxbridge/internal/recording"
)

const statusTimeout = 3 * time.Second

type Daemon struct {
	config *config.Manager
	build  Builder
	shared Shared

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	comp      *Components
	messenger *notify.Messenger
	pending   *config.Config
	startedAt time.Time

	stopRequested atomic.Bool
	wg            sync.WaitGroup
}

// New creates a daemon around a config manager. A nil build uses Build.
func New(m *config.Manager, build Builder) *Daemon {
	if build == nil {
		build = Build
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		config: m,
		build:  build,
		shared: NewShared(m.GetConfig()),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Stop asks Run to return.
func (d *Daemon) Stop() {
	d.cancel()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	cfg := d.config.GetConfig()
	comp, err := d.build(d.ctx, cfg, d.shared)
	if err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	d.mu.Lock()
	d.messenger = messengerFor(cfg)
	d.mu.Unlock()
	d.install(comp)
	defer d.shutdown()

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	d.config.OnReload(d.reload)
	if err := d.config.StartWatching(d.ctx); err != nil {
		log.Printf("Daemon: config hot reload unavailable: %v", err)
	}
	defer d.config.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Daemon: received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	src, tgt := comp.Orchestrator.Languages()
	log.Printf("Daemon: started (%s -> %s), listening on socket", src, tgt)

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Daemon: shutdown requested")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) shutdown() {
	d.mu.Lock()
	comp := d.comp
	d.mu.Unlock()
	if comp != nil {
		comp.Orchestrator.Cancel()
	}
	d.wg.Wait()
	if err := comp.Close(); err != nil {
		log.Printf("Daemon: failed to close cache: %v", err)
	}
}

// install makes comp the live component set and hooks its events up to
// notifications and the clipboard.
func (d *Daemon) install(comp *Components) {
	comp.Orchestrator.OnResult(func(r pipeline.Result) {
		d.messengerNow().Send(notify.MsgTranslated, r.TranslatedText)
		if comp.Injector == nil {
			return
		}
		if err := comp.Injector.Inject(d.ctx, r.TranslatedText); err != nil {
			log.Printf("Daemon: failed to copy translation: %v", err)
		}
	})
	comp.Orchestrator.OnError(func(err error) {
		d.messengerNow().Failure(err)
	})
	comp.Machine.OnTransition(func(t recording.Transition) {
		if t.From != recording.Recording || t.To != recording.Processing {
			return
		}
		if d.stopRequested.Swap(false) {
			d.messengerNow().Send(notify.MsgTranslating)
			return
		}
		d.mu.Lock()
		elapsed := time.Since(d.startedAt).Round(time.Second)
		d.mu.Unlock()
		d.messengerNow().Send(notify.MsgRecordingLimit, elapsed)
	})

	d.mu.Lock()
	d.comp = comp
	d.mu.Unlock()
}

func (d *Daemon) components() *Components {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.comp
}

func (d *Daemon) messengerNow() *notify.Messenger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.messenger
}

func messengerFor(cfg *config.Config) *notify.Messenger {
	var n notify.Notifier = notify.Nop{}
	if cfg.Notifications.Enabled {
		n = notify.New(cfg.Notifications.Type)
	}
	return notify.NewMessenger(n, cfg.Notifications.Messages.Resolve())
}

// reload is called with every valid new config. Components are rebuilt once
// no session is live.
func (d *Daemon) reload(cfg *config.Config) {
	d.mu.Lock()
	d.pending = cfg
	d.messenger = messengerFor(cfg)
	d.mu.Unlock()

	d.applyPending()
	d.messengerNow().Send(notify.MsgConfigReloaded)
}

func (d *Daemon) applyPending() {
	d.mu.Lock()
	cfg, old := d.pending, d.comp
	if cfg == nil || (old != nil && !settled(old.Orchestrator.State())) {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	d.shared.Apply(cfg)
	comp, err := d.build(d.ctx, cfg, d.shared)
	if err != nil {
		log.Printf("Daemon: keeping previous pipeline, rebuild failed: %v", err)
		if old != nil {
			if err := old.Orchestrator.SetLanguages(cfg.Translation.SourceLanguage, cfg.Translation.TargetLanguage); err != nil {
				log.Printf("Daemon: failed to apply languages: %v", err)
			}
		}
		return
	}
	d.install(comp)
	if err := old.Close(); err != nil {
		log.Printf("Daemon: failed to close previous cache: %v", err)
	}
	log.Printf("Daemon: pipeline rebuilt from new config")
}

func settled(s recording.State) bool {
	return s == recording.Idle || s == recording.Error
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Daemon: client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdToggle:
		fmt.Fprint(c, d.toggle()+"\n")
	case bus.CmdCancel:
		fmt.Fprint(c, d.cancelSession()+"\n")
	case bus.CmdStatus:
		fmt.Fprint(c, d.status()+"\n")
	case bus.CmdReplay:
		fmt.Fprint(c, d.replay()+"\n")
	case bus.CmdSwap:
		fmt.Fprint(c, d.swap()+"\n")
	case bus.CmdReset:
		fmt.Fprint(c, d.reset()+"\n")
	case bus.CmdHistory:
		fmt.Fprint(c, d.history()+"\n")
	case bus.CmdClearHistory:
		d.components().Orchestrator.ClearHistory()
		fmt.Fprint(c, "OK history cleared\n")
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Daemon: unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

// toggle starts a recording when idle and stops it when recording. The stop
// path runs the pipeline in the background; its outcome is reported through
// notifications.
func (d *Daemon) toggle() string {
	if settled(d.components().Orchestrator.State()) {
		d.applyPending()
	}
	comp := d.components()
	orch := comp.Orchestrator

	switch orch.State() {
	case recording.Idle, recording.Error:
		if err := orch.StartRecording(d.ctx); err != nil {
			return "ERR " + errorLine(err)
		}
		d.mu.Lock()
		d.startedAt = time.Now()
		d.mu.Unlock()
		src, tgt := orch.Languages()
		d.messengerNow().Send(notify.MsgRecordingStarted, src, tgt)
		return "OK recording"

	case recording.Recording:
		d.stopRequested.Store(true)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			res, err := orch.StopAndTranslate(d.ctx)
			switch {
			case err != nil && !apperr.IsCancelled(err):
				log.Printf("Daemon: translation failed: %v", err)
			case res != nil:
				log.Printf("Daemon: translated session %s", res.SessionID)
			}
		}()
		return "OK translating"

	default:
		return "ERR busy: " + string(orch.State())
	}
}

func (d *Daemon) cancelSession() string {
	if !d.components().Orchestrator.Cancel() {
		return "ERR nothing to cancel"
	}
	d.stopRequested.Store(false)
	d.messengerNow().Send(notify.MsgCancelled)
	return "OK cancelled"
}

func (d *Daemon) status() string {
	ctx, cancel := context.WithTimeout(d.ctx, statusTimeout)
	defer cancel()

	data, err := json.Marshal(d.components().Orchestrator.Status(ctx))
	if err != nil {
		return "ERR " + err.Error()
	}
	return "STATUS " + string(data)
}

func (d *Daemon) history() string {
	data, err := json.Marshal(d.components().Orchestrator.History())
	if err != nil {
		return "ERR " + err.Error()
	}
	return "STATUS " + string(data)
}

func (d *Daemon) replay() string {
	orch := d.components().Orchestrator
	last, err := orch.Replayable()
	if err != nil {
		return "ERR " + err.Error()
	}

	d.messengerNow().Send(notify.MsgReplaying, last.TranslatedText)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := orch.Replay(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Daemon: replay failed: %v", err)
		}
	}()
	return "OK replaying"
}

func (d *Daemon) swap() string {
	src, tgt := d.components().Orchestrator.Swap()
	d.messengerNow().Send(notify.MsgLanguagesSwapped, src, tgt)
	return fmt.Sprintf("OK %s -> %s", src, tgt)
}

func (d *Daemon) reset() string {
	if err := d.components().Orchestrator.Reset(); err != nil {
		return "ERR " + err.Error()
	}
	return "OK reset"
}

func errorLine(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return fmt.Sprintf("%s: %s", ae.Code, ae.Message)
	}
	return err.Error()
}
