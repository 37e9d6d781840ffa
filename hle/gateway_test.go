package hle

import (
	"errors"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/dynarec/mips"
)

func TestGatewayRegister(t *testing.T) {
	assert := assert.New(t)

	gw := NewGateway()

	called := 0
	assert.NoError(gw.Register(0x42, "Raw.Answer", func(call *Call) error {
		called++
		call.SetReturn(call.Arg(0) + 1)
		return nil
	}))
	assert.ErrorIs(gw.Register(0x42, "", nil), ErrSyscallDuplicate)
	assert.ErrorIs(gw.Register(0x10_0000, "", nil), ErrSyscallRange)

	cpu := &mips.Cpu{}
	cpu.Gpr[mips.REG_A0] = 41
	call := &Call{Id: 0x42, Address: 0x1000, Return: 0x1004, Next: 0x1004, Cpu: cpu}
	assert.NoError(gw.Invoke(call))
	assert.Equal(1, called)
	assert.Equal(uint32(42), cpu.Gpr[mips.REG_V0])
	assert.Equal(uint32(0x1004), call.Next)
	assert.False(call.PowerDownRequested())

	id, ok := gw.Lookup("Raw.Answer")
	assert.True(ok)
	assert.Equal(uint32(0x42), id)
	assert.Equal("Raw.Answer", gw.Name(0x42))
}

func TestGatewayModule(t *testing.T) {
	assert := assert.New(t)

	gw := NewGateway()

	fail := errors.New("fail")
	module, err := gw.RegisterModule("UnitTestFakeSyscalls", []Function{
		{0x1234BEEF, "UnitTestTerminator", func(call *Call) error {
			call.PowerDown()
			return nil
		}},
		{0x00000001, "Redirect", func(call *Call) error {
			call.Redirect(0x2000)
			return nil
		}},
		{0x00000002, "Fail", func(call *Call) error {
			return fail
		}},
	})
	assert.NoError(err)
	assert.Equal(1, module)

	_, err = gw.RegisterModule("UnitTestFakeSyscalls", nil)
	assert.ErrorIs(err, ErrModuleDuplicate)

	id, ok := gw.LookupNid("UnitTestFakeSyscalls", 0x1234BEEF)
	assert.True(ok)
	assert.Equal(uint32(0x1000), id)

	inst, err := gw.MakeSyscall("UnitTestFakeSyscalls", "Redirect")
	assert.NoError(err)
	assert.Equal(mips.MakeSyscall(0x1001), inst)

	_, err = gw.MakeSyscall("UnitTestFakeSyscalls", "Missing")
	assert.ErrorIs(err, ErrFunctionUnknown)

	defines := maps.Collect(gw.Defines())
	assert.Equal(map[string]string{
		"UnitTestFakeSyscalls_UnitTestTerminator": "0x1000",
		"UnitTestFakeSyscalls_Redirect":           "0x1001",
		"UnitTestFakeSyscalls_Fail":               "0x1002",
	}, defines)

	call := &Call{Id: 0x1000, Cpu: &mips.Cpu{}}
	assert.NoError(gw.Invoke(call))
	assert.True(call.PowerDownRequested())

	call = &Call{Id: 0x1001, Next: 0x1004, Cpu: &mips.Cpu{}}
	assert.NoError(gw.Invoke(call))
	assert.Equal(uint32(0x2000), call.Next)

	call = &Call{Id: 0x1002, Address: 0x1230, Cpu: &mips.Cpu{}}
	err = gw.Invoke(call)
	assert.ErrorIs(err, fail)
	var sc *ErrSyscall
	assert.ErrorAs(err, &sc)
	assert.Equal("UnitTestFakeSyscalls.Fail", sc.Name)
}

func TestGatewayUnknown(t *testing.T) {
	assert := assert.New(t)

	gw := NewGateway()
	err := gw.Invoke(&Call{Id: 0xbeef, Address: 0x1000})
	assert.ErrorIs(err, ErrUnknownSyscall)

	var sc *ErrSyscall
	assert.ErrorAs(err, &sc)
	assert.Equal(uint32(0xbeef), sc.Id)
	assert.Equal(uint32(0x1000), sc.Address)
}
