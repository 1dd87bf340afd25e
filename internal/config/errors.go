package config

import (
	"github.com/yndnr/docmirror/internal/core/domain"
	"github.com/yndnr/docmirror/pkg/pathexpand"
)

var (
	// ErrCycleDetected is returned unchanged from path expansion when the
	// active layout's templates do not converge.
	ErrCycleDetected = pathexpand.ErrCycleDetected

	// ErrUnknownLayout indicates main.layout names no paths.<layout> section.
	ErrUnknownLayout = domain.NewDomainError("DM-CONF-4041", "unknown path layout")

	// ErrUnknownLayer indicates a pop of a layer that is not on the stack.
	ErrUnknownLayer = domain.NewDomainError("DM-CONF-4042", "unknown configuration layer")

	// ErrInvalidConfig indicates an unreadable or invalid configuration.
	ErrInvalidConfig = domain.NewDomainError("DM-CONF-4001", "invalid configuration")

	// ErrNotLoaded indicates the store was used before Load.
	ErrNotLoaded = domain.NewDomainError("DM-CONF-5002", "configuration not loaded")
)
