package multigrid

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PreconditionMG applies one V-cycle as a preconditioner for a global system:
// the global residual is distributed onto the levels, a cycle is run, and the
// finest-level correction is gathered back.
type PreconditionMG struct {
	mg       *Multigrid
	transfer LevelTransfer
}

// NewPreconditionMG binds a Multigrid to the transfer that maps between the
// global vector and its levels.
func NewPreconditionMG(mg *Multigrid, transfer LevelTransfer) *PreconditionMG {
	return &PreconditionMG{mg: mg, transfer: transfer}
}

// Vmult computes dst = B·src where B is the V-cycle approximation of A⁻¹.
// The defect is refilled from src on every call.
func (p *PreconditionMG) Vmult(dst, src *mat.VecDense) error {
	if err := p.transfer.CopyToMG(p.mg.Defect(), src); err != nil {
		return fmt.Errorf("copy to levels: %w", err)
	}
	if err := p.mg.Vcycle(); err != nil {
		return fmt.Errorf("vcycle: %w", err)
	}
	if err := p.transfer.CopyFromMG(dst, p.mg.Solution()); err != nil {
		return fmt.Errorf("copy from levels: %w", err)
	}
	return nil
}
