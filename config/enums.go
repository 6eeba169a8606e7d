package config

import "htmlsnap/common"

type (
	FontMode    = common.FontMode
	HostKind    = common.HostKind
	Orientation = common.Orientation
)
