package depthcloud

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	modules   []Module
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	quit      bool
	frames    uint64
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Run steps the app until a system calls Commands.Quit.
func (app *App) Run() {
	app.Logger().Infof("running %d stages", len(app.stages))
	for !app.quit {
		app.Step()
	}
	app.Logger().Infof("stopped after %d frames", app.frames)
}

// Step runs every stage once, in order.
func (app *App) Step() {
	prof := app.profiler()
	for _, stage := range app.stages {
		if prof != nil {
			prof.BeginScope(stage.Name)
		}
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
		if prof != nil {
			prof.EndScope(stage.Name)
		}
	}
	app.frames++
}

func (app *App) Quit()          { app.quit = true }
func (app *App) Stopped() bool  { return app.quit }
func (app *App) Frames() uint64 { return app.frames }

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type *T, if installed.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

func (app *App) profiler() *Profiler {
	p, _ := Resource[Profiler](app)
	return p
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			app.unresolved(systemType, systemValue, argType)
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			app.unresolved(systemType, systemValue, argType)
		}
	}
	systemValue.Call(args)
}

func (app *App) unresolved(systemType reflect.Type, systemValue reflect.Value, argType reflect.Type) {
	msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
		runtime.FuncForPC(systemValue.Pointer()).Name(),
		fmt.Sprint(systemType),
		fmt.Sprint(argType),
	)
	panic(msg)
}
