package sh

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mantx/pkg/config"
	"github.com/robotalks/mantx/pkg/link"
	"github.com/robotalks/mantx/pkg/manchester"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell    *ishell.Shell
	Config   *config.Config
	Standard manchester.Standard
	Device   Device

	local  *Local
	conn   io.Closer
	target string
}

const (
	shellKey    = "$shell"
	localTarget = "local"
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	configFile string

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&configFile, "config", configFile, "TOML config file.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell with a local simulated device.
func New(conf *config.Config) (*Shell, error) {
	txConf, err := conf.TransmitterConfig(nil)
	if err != nil {
		return nil, err
	}
	local, err := NewLocal(txConf)
	if err != nil {
		return nil, err
	}
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:    ishell.New(),
		Config:   conf,
		Standard: txConf.Standard,
		local:    local,
	}
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	s.useLocal()
	return s, nil
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Local returns the local device if it's in use.
func (s *Shell) Local() *Local {
	if s.conn != nil {
		return nil
	}
	return s.local
}

// Connect switches to a device on the serial link at path.
func (s *Shell) Connect(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Device, s.conn, s.target = link.NewClient(f), f, path
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", path))
	return nil
}

// Disconnect switches back to the local device.
func (s *Shell) Disconnect() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.useLocal()
}

func (s *Shell) useLocal() {
	s.Device, s.target = s.local, localTarget
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", localTarget))
}

// Print prints a result, as JSON if requested.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// ParseHex parses bytes from hex args; spaces, colons and a 0x prefix
// are allowed.
func ParseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %v", err)
	}
	return data, nil
}

// FormatHex formats bytes as upper case hex separated by spaces.
func FormatHex(data []byte) string {
	parts := make([]string, len(data))
	for n, b := range data {
		parts[n] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Disconnect()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Printf("mantx shell, target %s\n", s.target)
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a device over the serial link.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[DEVICE-PATH]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			path := s.Config.SerialDevice
			if len(c.Args) > 0 {
				path = c.Args[0]
			}
			if path == "" {
				c.Err(fmt.Errorf("DEVICE-PATH required"))
				return
			}
			if err := s.Connect(path); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd switches back to the local device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.LoadFile(configFile)
	if err != nil {
		log.Fatalln(err)
	}
	s, err := New(conf)
	if err != nil {
		log.Fatalln(err)
	}
	s.Run(flag.Args()...)
}
