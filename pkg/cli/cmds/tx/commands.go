package tx

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mantx/pkg/cli/sh"
	"github.com/robotalks/mantx/pkg/framer"
	"github.com/robotalks/mantx/pkg/line"
	"github.com/robotalks/mantx/pkg/manchester"
)

type codecResult struct {
	Standard string `json:"standard"`
	Data     string `json:"data,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type txResult struct {
	Status  string `json:"status"`
	Levels  string `json:"levels,omitempty"`
	Error   string `json:"error,omitempty"`
	Aborted *bool  `json:"aborted,omitempty"`
	Phase   string `json:"phase,omitempty"`
}

func hexArgs(c *ishell.Context, what string) ([]byte, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("%s required", what))
		return nil, false
	}
	data, err := sh.ParseHex(c.Args)
	if err != nil {
		c.Err(fmt.Errorf("Invalid %s: %v", what, err))
		return nil, false
	}
	return data, true
}

func codec(c *ishell.Context, what string, fn func(*sh.Shell, []byte) ([]byte, error)) {
	data, ok := hexArgs(c, what)
	if !ok {
		return
	}
	s := sh.ShellFrom(c)
	out, err := fn(s, data)
	res := codecResult{Standard: s.Standard.String(), Status: manchester.StatusOf(err).String()}
	if err != nil {
		res.Error = err.Error()
		if !s.OutputJSON {
			c.Err(err)
			return
		}
	}
	res.Data = sh.FormatHex(out)
	s.Print(c, res, res.Data)
}

func transmit(c *ishell.Context, what string, fn func(sh.Device, []byte) error) {
	data, ok := hexArgs(c, what)
	if !ok {
		return
	}
	s := sh.ShellFrom(c)
	err := fn(s.Device, data)
	res := txResult{Status: manchester.StatusOf(err).String()}
	if err != nil {
		res.Error = err.Error()
		if !s.OutputJSON {
			c.Err(err)
			return
		}
		s.Print(c, res, "")
		return
	}
	text := "OK"
	if local := s.Local(); local != nil {
		levels := local.LastWaveform()
		res.Levels = line.FormatLevels(levels)
		text = res.Levels + "\n" + line.Waveform(levels)
	}
	s.Print(c, res, text)
}

var (
	// EncodeCmd encodes hex bytes.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"enc"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			codec(c, "HEX", func(s *sh.Shell, data []byte) ([]byte, error) {
				return s.Device.Encode(data, s.Standard)
			})
		},
	}

	// DecodeCmd decodes a hex frame.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			codec(c, "HEX", func(s *sh.Shell, data []byte) ([]byte, error) {
				return s.Device.Decode(data, s.Standard)
			})
		},
	}

	// SendCmd transmits a payload.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"tx"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			transmit(c, "HEX", sh.Device.Transmit)
		},
	}

	// SendRawCmd transmits a pre-encoded frame verbatim.
	SendRawCmd = ishell.Cmd{
		Name:    "sendraw",
		Aliases: []string{"txraw"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			transmit(c, "HEX", sh.Device.TransmitFrame)
		},
	}

	// StatusCmd queries the framer phase.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			phase, err := s.Device.Status()
			if err != nil {
				c.Err(err)
				return
			}
			status := manchester.StatusOK
			if phase != framer.PhaseIdle {
				status = manchester.StatusWorking
			}
			res := txResult{Status: status.String(), Phase: phase.String()}
			s.Print(c, res, res.Phase)
		},
	}

	// AbortCmd aborts the transmission in flight.
	AbortCmd = ishell.Cmd{
		Name:    "abort",
		Aliases: []string{"ab"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			aborted, err := s.Device.Abort()
			if err != nil {
				c.Err(err)
				return
			}
			text := "nothing to abort"
			if aborted {
				text = "aborted"
			}
			s.Print(c, txResult{Status: manchester.StatusOK.String(), Aborted: &aborted}, text)
		},
	}

	// StandardCmd shows or sets the standard used by encode and decode.
	StandardCmd = ishell.Cmd{
		Name:    "standard",
		Aliases: []string{"std"},
		Help:    "[ieee|thomas]",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if len(c.Args) > 0 {
				std, err := manchester.ParseStandard(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				s.Standard = std
			}
			s.Print(c, codecResult{Standard: s.Standard.String(), Status: manchester.StatusOK.String()}, s.Standard.String())
		},
	}
)

func init() {
	sh.AddCmds(
		&EncodeCmd,
		&DecodeCmd,
		&SendCmd,
		&SendRawCmd,
		&StatusCmd,
		&AbortCmd,
		&StandardCmd,
	)
}
