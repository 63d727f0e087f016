package ctl

import (
	"fmt"
	"strconv"

	"github.com/oshokin/power-sentinel/internal/control"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
)

// Describe renders a status snapshot as one sentence per field.
func Describe(status sentinel.Status) []string {
	return []string{
		flagMessage("External power is %s.", status.PowerOK, "OK", "DOWN"),
		flagMessage("UPS power is %s.", status.UPSOK, "OK", "DOWN"),
		fmt.Sprintf("Pressure is %.2f mbar.", status.Pressure),
		fmt.Sprintf("Pressure threshold is %.0f mbar.", status.Threshold),
		flagMessage("Alarms are %s.", status.Armed, "enabled", "disabled"),
	}
}

// DescribeVariable renders a single variable. Unknown variables are printed
// as is.
func DescribeVariable(name string, value any) string {
	number, isNumber := value.(float64)

	switch {
	case name == control.VariablePower && isNumber:
		return flagMessage("External power is %s.", number != 0, "OK", "DOWN")
	case name == control.VariableUPSPower && isNumber:
		return flagMessage("UPS power is %s.", number != 0, "OK", "DOWN")
	case name == control.VariableArmed && isNumber:
		return flagMessage("Alarms are %s.", number != 0, "enabled", "disabled")
	case name == control.VariablePressure && isNumber:
		return fmt.Sprintf("Pressure is %.2f mbar.", number)
	case name == control.VariableThreshold && isNumber:
		return fmt.Sprintf("Pressure threshold is %.0f mbar.", number)
	default:
		return fmt.Sprint(value)
	}
}

// DescribeResult renders the outcome of a command from its result code.
func DescribeResult(name, argument string, code int64) string {
	switch name {
	case "alarm":
		switch {
		case argument == sentinel.ArmCommand && code == control.CodeOn:
			return "Alarm enabled."
		case argument == sentinel.DisarmCommand && code == control.CodeOff:
			return "Alarm disabled."
		default:
			return "Alarm NOT changed, please try again."
		}
	case "led":
		switch code {
		case control.CodeOn:
			return "LED is on."
		case control.CodeOff:
			return "LED is off."
		default:
			return "LED NOT changed, please try again."
		}
	case "threshold":
		message := fmt.Sprintf("Pressure alarm threshold set to %d mbar.", code)

		requested, err := sentinel.ParseThreshold(argument)
		if err != nil || sentinel.ThresholdCode(requested) != code {
			message += " Threshold NOT changed, please try again."
		}

		return message
	case "test":
		return "Test event sent."
	default:
		return strconv.FormatInt(code, 10)
	}
}

func flagMessage(format string, ok bool, yes, no string) string {
	if ok {
		return fmt.Sprintf(format, yes)
	}

	return fmt.Sprintf(format, no)
}
