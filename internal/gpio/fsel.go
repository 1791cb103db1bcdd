package gpio

import (
	"fmt"
	"strings"
)

// Function is a BCM283x/BCM2711 GPFSEL function code (3 bits per pin).
type Function uint32

const (
	FuncInput  Function = 0
	FuncOutput Function = 1
	FuncAlt0   Function = 4
	FuncAlt1   Function = 5
	FuncAlt2   Function = 6
	FuncAlt3   Function = 7
	FuncAlt4   Function = 3
	FuncAlt5   Function = 2
)

// maxFSELPin is the highest pin covered by GPFSEL0-5.
const maxFSELPin = 57

var functionNames = map[string]Function{
	"alt0": FuncAlt0,
	"alt1": FuncAlt1,
	"alt2": FuncAlt2,
	"alt3": FuncAlt3,
	"alt4": FuncAlt4,
	"alt5": FuncAlt5,
}

func (f Function) String() string {
	for name, fn := range functionNames {
		if fn == f {
			return strings.ToUpper(name)
		}
	}
	switch f {
	case FuncInput:
		return "INPUT"
	case FuncOutput:
		return "OUTPUT"
	}
	return fmt.Sprintf("Function(%d)", uint32(f))
}

// ParseFunction parses "alt0" through "alt5".
func ParseFunction(s string) (Function, error) {
	fn, ok := functionNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown pin function %q (want alt0..alt5)", s)
	}
	return fn, nil
}

// pwmFunctions maps header pins that can carry PWM0/PWM1 to the
// alternate function that routes the PWM peripheral to them.
var pwmFunctions = map[int]Function{
	12: FuncAlt0,
	13: FuncAlt0,
	18: FuncAlt5,
	19: FuncAlt5,
	40: FuncAlt0,
	41: FuncAlt0,
	45: FuncAlt0,
}

// PWMFunction returns the alternate function carrying PWM on pin.
func PWMFunction(pin int) (Function, bool) {
	fn, ok := pwmFunctions[pin]
	return fn, ok
}

// setFunction rewrites the 3-bit field for pin in the GPFSEL bank regs.
// regs[0] is GPFSEL0; each register holds ten pins.
func setFunction(regs []uint32, pin int, fn Function) error {
	if pin < 0 || pin > maxFSELPin {
		return fmt.Errorf("pin %d: out of GPFSEL range", pin)
	}
	reg := pin / 10
	if reg >= len(regs) {
		return fmt.Errorf("pin %d: register GPFSEL%d not mapped", pin, reg)
	}
	shift := uint(pin%10) * 3
	bits := uint32(fn) & 7
	v := regs[reg]
	v &^= 7 << shift
	v |= bits << shift
	regs[reg] = v
	return nil
}

// functionOf reads the 3-bit field for pin.
func functionOf(regs []uint32, pin int) Function {
	reg := pin / 10
	shift := uint(pin%10) * 3
	return Function(regs[reg]>>shift) & 7
}
