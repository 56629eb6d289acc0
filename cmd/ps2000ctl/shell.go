package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/arloliu/go-ps2000/psu"
)

const (
	sessionKey = "$session"
	ctxKey     = "$ctx"
)

var commands = []*ishell.Cmd{
	{Name: "info", Help: "print device information", Func: withSession(cmdInfo)},
	{Name: "status", Help: "print status and actual values", Func: withSession(cmdStatus)},
	{Name: "setpoints", Help: "print the set values", Func: withSession(cmdSetpoints)},
	{Name: "remote", Help: "remote on|off, switch remote control", Func: withSession(cmdRemote)},
	{Name: "output", Help: "output on|off, switch the output", Func: withSession(cmdOutput)},
	{Name: "voltage", Help: "voltage [volts], read or set the voltage", Func: withSession(cmdVoltage)},
	{Name: "current", Help: "current [amps], read or set the current limit", Func: withSession(cmdCurrent)},
	{Name: "ovp", Help: "ovp [volts], read or set the overvoltage threshold", Func: withSession(cmdOVP)},
	{Name: "ocp", Help: "ocp [amps], read or set the overcurrent threshold", Func: withSession(cmdOCP)},
	{Name: "ack", Help: "acknowledge protection alarms", Func: withSession(cmdAck)},
	{Name: "stats", Help: "print transport counters", Func: withSession(cmdStats)},
}

func newShell(ctx context.Context, s *psu.Session) *ishell.Shell {
	sh := ishell.New()
	sh.Set(sessionKey, s)
	sh.Set(ctxKey, ctx)
	sh.SetPrompt(fmt.Sprintf("[%s] > ", s.Profile().Model))

	for _, cmd := range commands {
		sh.AddCmd(cmd)
	}

	sh.Println("PS 2000 B shell, type help for commands")

	return sh
}

// withSession passes the session and context stored in the shell to fn and
// prints its error.
func withSession(fn func(ctx context.Context, c *ishell.Context, s *psu.Session) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := c.Get(sessionKey).(*psu.Session)
		ctx := c.Get(ctxKey).(context.Context)

		if err := fn(ctx, c, s); err != nil {
			c.Err(err)
		}
	}
}

func cmdInfo(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	return printInfo(ctx, s, writer{c})
}

func cmdStatus(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	return printActuals(ctx, s, writer{c})
}

func cmdSetpoints(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	sp, err := s.ReadSetpoints(ctx)
	if err != nil {
		return err
	}

	c.Printf("voltage %.3f V\ncurrent %.3f A\nstatus  %s\n", sp.Voltage, sp.Current, sp.Status)

	return nil
}

func cmdRemote(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	on, err := parseOnOff(c.Args)
	if err != nil {
		return err
	}
	if err := s.SetRemoteControl(ctx, on); err != nil {
		return err
	}

	c.Println("remote", onOff(on))

	return nil
}

func cmdOutput(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	on, err := parseOnOff(c.Args)
	if err != nil {
		return err
	}
	if err := s.SetOutputEnabled(ctx, on); err != nil {
		return err
	}

	c.Println("output", onOff(on))

	return nil
}

func cmdVoltage(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	return readOrSet(ctx, c, "V", s.ReadVoltageSetpoint, s.SetVoltage)
}

func cmdCurrent(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	return readOrSet(ctx, c, "A", s.ReadCurrentSetpoint, s.SetCurrent)
}

func cmdOVP(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	return readOrSet(ctx, c, "V", s.OVPThreshold, s.SetOVPThreshold)
}

func cmdOCP(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	return readOrSet(ctx, c, "A", s.OCPThreshold, s.SetOCPThreshold)
}

func cmdAck(ctx context.Context, c *ishell.Context, s *psu.Session) error {
	if err := s.AcknowledgeAlarms(ctx); err != nil {
		return err
	}

	c.Println("alarms acknowledged")

	return nil
}

func cmdStats(_ context.Context, c *ishell.Context, s *psu.Session) error {
	m := s.Metrics()
	c.Printf("exchanges %d, attempts %d, retries %d\n", m.ExchangeCount.Load(), m.AttemptCount.Load(), m.RetryCount.Load())
	c.Printf("timeouts %d, checksum errors %d, desyncs %d, unresponsive %d\n",
		m.TimeoutCount.Load(), m.ChecksumErrCount.Load(), m.DesyncCount.Load(), m.UnresponsiveCount.Load())
	c.Printf("bytes sent %d, received %d, garbage %d\n", m.BytesSent.Load(), m.BytesRecv.Load(), m.GarbageBytes.Load())

	return nil
}

func readOrSet(
	ctx context.Context,
	c *ishell.Context,
	unit string,
	read func(context.Context) (float64, error),
	set func(context.Context, float64) error,
) error {
	if len(c.Args) == 0 {
		v, err := read(ctx)
		if err != nil {
			return err
		}
		c.Printf("%.3f %s\n", v, unit)

		return nil
	}

	v, err := strconv.ParseFloat(c.Args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", c.Args[0])
	}
	if err := set(ctx, v); err != nil {
		return err
	}

	c.Printf("set %.3f %s\n", v, unit)

	return nil
}

func parseOnOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("expected on or off")
	}

	switch strings.ToLower(args[0]) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", args[0])
	}
}

// writer adapts an ishell context to io.Writer.
type writer struct {
	c *ishell.Context
}

func (w writer) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}
