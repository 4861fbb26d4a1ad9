package depthcloud

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Same type twice panics
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	got, ok := Resource[MockResource2](app)
	require.True(t, ok)
	assert.Same(t, resource2, got)
}

func TestApp_addResourcesRejectsValues(t *testing.T) {
	app := &App{resources: make(map[reflect.Type]any)}
	assert.Panics(t, func() { app.addResources(MockResource1{}) })
}

func TestApp_SystemInjection(t *testing.T) {
	app := NewAppBuilder().Build()
	r1 := NewMockResource1("one")
	app.addResources(r1)

	var gotRes *MockResource1
	var gotCmd *Commands
	app.UseSystem(System(func(r *MockResource1, cmd *Commands) {
		gotRes = r
		gotCmd = cmd
	}))
	app.Step()

	assert.Same(t, r1, gotRes)
	require.NotNil(t, gotCmd)
	assert.Same(t, app, gotCmd.app)
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(*MockResource2) {}))
	assert.Panics(t, app.Step)
}

func TestApp_StageOrder(t *testing.T) {
	app := NewAppBuilder().Build()
	var order []string
	for _, s := range []Stage{Render, PreUpdate, PostRender, PreRender, Update} {
		stage := s
		app.UseSystem(System(func() { order = append(order, stage.Name) }).InStage(stage))
	}
	app.Step()
	assert.Equal(t, []string{"PreUpdate", "Update", "PreRender", "Render", "PostRender"}, order)
	assert.Equal(t, uint64(1), app.Frames())
}

func TestApp_UseStage(t *testing.T) {
	app := NewAppBuilder().Build()
	custom := Stage{Name: "Upload"}
	app.UseStage(custom, BeforeStage(Render))

	stages := app.Stages()
	assert.Equal(t, "Upload", stages[len(stages)-4])
	assert.Equal(t, "Render", stages[len(stages)-3])

	assert.Panics(t, func() { app.UseStage(custom, AfterStage(Render)) }, "duplicate stage")
	assert.Panics(t, func() { app.UseStage(Stage{Name: "X"}, AfterStage(Stage{Name: "Missing"})) })
	assert.Panics(t, func() { app.UseSystem(System(func() {}).InStage(Stage{Name: "Missing"})) })
}

func TestApp_RunUntilQuit(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(cmd *Commands) {
		if cmd.app.Frames() == 2 {
			cmd.Quit()
		}
	}))
	app.Run()
	assert.True(t, app.Stopped())
	assert.Equal(t, uint64(3), app.Frames())
}

func TestApp_ProfilesStages(t *testing.T) {
	app := NewAppBuilder().UseModule(ProfilerModule{}).Build()
	app.Step()

	prof, ok := Resource[Profiler](app)
	require.True(t, ok)
	assert.Equal(t, app.Stages(), prof.Order)
}
