package mpv

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/ytget/ytplay/internal/playback"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
	openTimeout       = 20 * time.Second
)

type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

func (pr *process) alive() bool {
	select {
	case <-pr.exited:
		return false
	default:
		return true
	}
}

// Player drives one mpv process. The process is started lazily by Play and
// restarted when the bound output handle changed. Not safe for concurrent use.
type Player struct {
	binary string
	args   []string
	log    zerolog.Logger

	ipc   *ipcClient
	proc  *process
	start *startup

	media     playback.Media
	loadedURI string
	loadedAt  time.Time
	started   bool

	wid         uintptr
	hasWid      bool
	launchedWid uintptr

	volume int
	muted  bool

	socketDelay time.Duration
	quitTimeout time.Duration
	openTimeout time.Duration
}

func newPlayer(binary string, args []string, logger zerolog.Logger) *Player {
	return &Player{
		binary:      binary,
		args:        args,
		log:         logger,
		volume:      100,
		socketDelay: socketWaitDelay,
		quitTimeout: quitTimeout,
		openTimeout: openTimeout,
	}
}

// launchArgs builds the mpv command line. Without an output handle mpv
// opens its own window.
func launchArgs(base []string, socket string, wid uintptr, hasWid bool, volume int, muted bool) []string {
	args := append([]string(nil), base...)
	args = append(args,
		"--no-terminal",
		"--idle=yes",
		"--keep-open=yes",
		"--input-ipc-server="+socket,
		"--volume="+strconv.Itoa(volume),
	)
	if muted {
		args = append(args, "--mute=yes")
	} else {
		args = append(args, "--mute=no")
	}
	if hasWid {
		args = append(args, "--wid="+strconv.FormatUint(uint64(wid), 10))
	} else {
		args = append(args, "--force-window=yes")
	}
	return args
}

func newSocketPath() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate socket name: %w", err)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("ytplay-%x.sock", b)), nil
}

func (p *Player) running() bool {
	return p.proc != nil && p.proc.alive()
}

// launch starts mpv and returns without waiting for its IPC socket.
// Commands sent before the socket accepts connections are queued and
// flushed by the waiter; a socket that never comes up kills the process,
// which State then reports as an error.
func (p *Player) launch() error {
	p.shutdown()

	socket, err := newSocketPath()
	if err != nil {
		return err
	}
	cmd := exec.Command(p.binary, launchArgs(p.args, socket, p.wid, p.hasWid, p.volume, p.muted)...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	proc := &process{cmd: cmd, exited: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(proc.exited)
	}()
	ipc := newIPCClient(socket)
	st := &startup{}
	p.proc = proc
	p.ipc = ipc
	p.start = st
	p.launchedWid = p.wid
	p.loadedURI = ""
	p.started = false

	logger := p.log.With().Int("pid", cmd.Process.Pid).Str("socket", socket).Logger()
	delay := p.socketDelay
	go func() {
		err := waitForSocket(proc, socket, delay)
		if err != nil {
			logger.Warn().Err(err).Msg("killing mpv: socket never became ready")
			_ = killProcess(cmd)
		}
		st.finish(ipc, err, logger)
	}()
	logger.Info().Msg("mpv started")
	return nil
}

func waitForSocket(proc *process, socket string, delay time.Duration) error {
	return retry.Do(
		func() error {
			if !proc.alive() {
				return retry.Unrecoverable(errors.New("mpv exited before socket was ready"))
			}
			conn, err := net.Dial("unix", socket)
			if err != nil {
				return err
			}
			return conn.Close()
		},
		retry.Attempts(socketWaitRetries),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// shutdown quits mpv, killing it if it does not exit in time.
func (p *Player) shutdown() {
	if p.proc == nil {
		return
	}
	if p.proc.alive() {
		if p.start.abandon() {
			_ = killProcess(p.proc.cmd)
		} else {
			_, _ = p.ipc.command("quit")
		}
		select {
		case <-p.proc.exited:
		case <-time.After(p.quitTimeout):
			_ = killProcess(p.proc.cmd)
		}
	}
	_ = os.Remove(p.ipc.socketPath)
	p.proc = nil
	p.ipc = nil
	p.start = nil
	p.loadedURI = ""
	p.started = false
}

// SetMedia selects the media opened by the next Play.
func (p *Player) SetMedia(m playback.Media) error {
	p.media = m
	return nil
}

// Play starts mpv if needed, loads the current media and unpauses.
func (p *Player) Play() error {
	if p.media == nil {
		return playback.ErrNoMedia
	}
	if !p.running() || (p.hasWid && p.wid != p.launchedWid) {
		if err := p.launch(); err != nil {
			return err
		}
	}
	uri := p.media.URI()
	if p.loadedURI != uri {
		if err := p.send("loadfile", uri, "replace"); err != nil {
			return err
		}
		p.loadedURI = uri
		p.loadedAt = time.Now()
		p.started = false
	}
	return p.set("pause", false)
}

// SetPause sets the pause property.
func (p *Player) SetPause(pause bool) error {
	return p.set("pause", pause)
}

// Stop unloads the current file; mpv stays idle.
func (p *Player) Stop() error {
	if !p.running() {
		return nil
	}
	p.loadedURI = ""
	p.started = false
	return p.send("stop")
}

// State derives the engine state from mpv properties.
func (p *Player) State() playback.EngineState {
	if p.proc == nil {
		return playback.EngineIdle
	}
	if !p.proc.alive() {
		if p.loadedURI != "" {
			return playback.EngineError
		}
		return playback.EngineStopped
	}
	if !p.start.isReady() {
		if p.loadedURI != "" {
			return playback.EngineOpening
		}
		return playback.EngineStopped
	}
	idle, _ := p.boolProp("idle-active")
	eof, _ := p.boolProp("eof-reached")
	paused, _ := p.boolProp("pause")
	buffering, _ := p.boolProp("paused-for-cache")
	_, hasTime := p.floatProp("time-pos")
	loaded := p.loadedURI != ""
	if loaded && !idle {
		p.started = true
	}
	return stateFromProps(props{
		Loaded:    loaded,
		Idle:      idle,
		EOF:       eof,
		Paused:    paused,
		Buffering: buffering,
		HasTime:   hasTime,
		Started:   p.started,
		Overdue:   loaded && !p.started && p.openTimeout > 0 && time.Since(p.loadedAt) > p.openTimeout,
	})
}

// IsPlaying reports whether mpv is playing.
func (p *Player) IsPlaying() bool {
	return p.State() == playback.EnginePlaying
}

// Time returns time-pos in milliseconds.
func (p *Player) Time() int64 {
	v, _ := p.floatProp("time-pos")
	return int64(v * 1000)
}

// SetTime seeks to ms.
func (p *Player) SetTime(ms int64) error {
	if !p.running() {
		return nil
	}
	return p.send("seek", float64(ms)/1000, "absolute")
}

// Position returns percent-pos as a fraction.
func (p *Player) Position() float64 {
	v, _ := p.floatProp("percent-pos")
	return v / 100
}

// SetPosition seeks to fraction f.
func (p *Player) SetPosition(f float64) error {
	if !p.running() {
		return nil
	}
	return p.send("seek", f*100, "absolute-percent")
}

// Length returns the duration in milliseconds.
func (p *Player) Length() int64 {
	v, _ := p.floatProp("duration")
	return int64(v * 1000)
}

// BindOutput embeds video into the native window handle. A running
// process picks it up on the next Play.
func (p *Player) BindOutput(handle uintptr) error {
	p.wid = handle
	p.hasWid = true
	return nil
}

// SetVolume sets the volume (0..100).
func (p *Player) SetVolume(volume int) error {
	p.volume = volume
	return p.set("volume", volume)
}

// SetMute sets the mute flag.
func (p *Player) SetMute(mute bool) error {
	p.muted = mute
	return p.set("mute", mute)
}

// ToggleMute flips the mute flag.
func (p *Player) ToggleMute() error {
	return p.SetMute(!p.muted)
}

// Release quits mpv.
func (p *Player) Release() error {
	p.shutdown()
	return nil
}

func (p *Player) set(name string, value any) error {
	return p.send("set_property", name, value)
}

// send runs a command, or queues it while mpv is still starting.
func (p *Player) send(args ...any) error {
	if !p.running() {
		return nil
	}
	if p.start.enqueue(args) {
		return nil
	}
	_, err := p.ipc.command(args...)
	return err
}

func (p *Player) floatProp(name string) (float64, bool) {
	if !p.running() || !p.start.isReady() {
		return 0, false
	}
	data, err := p.ipc.command("get_property", name)
	if err != nil {
		if !errors.Is(err, errPropertyUnavailable) {
			p.log.Debug().Err(err).Str("property", name).Msg("mpv property read failed")
		}
		return 0, false
	}
	v, ok := data.(float64)
	return v, ok
}

func (p *Player) boolProp(name string) (bool, bool) {
	if !p.running() || !p.start.isReady() {
		return false, false
	}
	data, err := p.ipc.command("get_property", name)
	if err != nil {
		return false, false
	}
	v, ok := data.(bool)
	return v, ok
}
