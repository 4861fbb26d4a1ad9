package shaders

import (
	_ "embed"
)

//go:embed point_cloud.wgsl
var PointCloudWGSL string
