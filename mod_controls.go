package depthcloud

// PointCloudControlsModule maps keys to source toggles: F freezes or resumes
// every source, H hides or shows them.
type PointCloudControlsModule struct{}

func (m PointCloudControlsModule) Install(app *App, cmd *Commands) {
	cmd.UseSystem(System(pointCloudControlSystem).InStage(Update))
}

func pointCloudControlSystem(input *Input, pcs *PointClouds, cmd *Commands) {
	if input.JustPressed[KeyF] {
		for _, s := range pcs.sources {
			s.SetLive(!s.Live())
			cmd.Logger().Infof("point cloud %q live=%t", s.Name(), s.Live())
		}
	}
	if input.JustPressed[KeyH] {
		for _, s := range pcs.sources {
			s.SetDisplay(!s.Display())
		}
	}
	if input.JustPressed[KeyEscape] {
		cmd.Quit()
	}
}
