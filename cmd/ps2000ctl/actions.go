package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/go-ps2000/psu"
)

type action string

const (
	actionNone   action = ""
	actionOn     action = "on"
	actionOff    action = "off"
	actionToggle action = "toggle"
	actionInfo   action = "info"
)

func pickAction(on, off, toggle, info bool) (action, error) {
	picked := actionNone
	for _, a := range []struct {
		set bool
		act action
	}{
		{on, actionOn},
		{off, actionOff},
		{toggle, actionToggle},
		{info, actionInfo},
	} {
		if !a.set {
			continue
		}
		if picked != actionNone {
			return actionNone, errors.New("--on, --off, --toggle and --info are mutually exclusive")
		}
		picked = a.act
	}

	return picked, nil
}

func runAction(ctx context.Context, s *psu.Session, act action, w io.Writer) error {
	if act == actionInfo {
		return printInfo(ctx, s, w)
	}

	if err := s.SetRemoteControl(ctx, true); err != nil {
		return err
	}

	var on bool
	switch act {
	case actionOn:
		on = true
	case actionOff:
		on = false
	case actionToggle:
		c, err := s.ReadControl(ctx)
		if err != nil {
			return err
		}
		on = !c.OutputOn
	default:
		return fmt.Errorf("unknown action %q", act)
	}

	if err := s.SetOutputEnabled(ctx, on); err != nil {
		return err
	}

	fmt.Fprintf(w, "output %s\n", onOff(on))

	return nil
}

func printInfo(ctx context.Context, s *psu.Session, w io.Writer) error {
	id, err := s.ReadIdentity(ctx)
	if err != nil {
		return err
	}

	p := s.Profile()
	fmt.Fprintf(w, "type         %s\n", id.Model)
	fmt.Fprintf(w, "serial       %s\n", id.SerialNumber)
	fmt.Fprintf(w, "article      %s\n", id.ArticleNumber)
	fmt.Fprintf(w, "manufacturer %s\n", id.Manufacturer)
	fmt.Fprintf(w, "version      %s\n", id.SoftwareVersion)
	fmt.Fprintf(w, "class        0x%04X\n", id.DeviceClass)
	fmt.Fprintf(w, "nom. voltage %.2f V\n", p.NominalVoltage)
	fmt.Fprintf(w, "nom. current %.2f A\n", p.NominalCurrent)
	fmt.Fprintf(w, "nom. power   %.2f W\n", p.NominalPower)

	ovp, err := s.OVPThreshold(ctx)
	if err != nil {
		return err
	}
	ocp, err := s.OCPThreshold(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "OVP          %.2f V\n", ovp)
	fmt.Fprintf(w, "OCP          %.2f A\n", ocp)

	return printActuals(ctx, s, w)
}

func printActuals(ctx context.Context, s *psu.Session, w io.Writer) error {
	a, err := s.ReadActuals(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "status       %s\n", a.Status)
	fmt.Fprintf(w, "voltage      %.3f V\n", a.Voltage)
	fmt.Fprintf(w, "current      %.3f A\n", a.Current)
	fmt.Fprintf(w, "power        %.3f W\n", a.Power)

	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}

	return "off"
}
