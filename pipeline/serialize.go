package pipeline

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ComponentManifest is the serialized shape of one Exec parameter or
// output, enough to re-bind it against a freshly loaded World without
// round-tripping the full ecs.Metadata tag set.
type ComponentManifest struct {
	Name      string `json:"name"`
	Primitive string `json:"primitive"`
	Shape     []int  `json:"shape"`
}

// ExecManifest is metadata.json's schema: everything needed to describe a
// compiled Exec on disk, following the "build once, run/replay many
// times" workflow of `conduit build` (spec.md §7 and the cmd/conduit CLI).
type ExecManifest struct {
	Name    string              `json:"name"`
	Params  []ComponentManifest `json:"params"`
	Outputs []ComponentManifest `json:"outputs"`
}

func toManifest(metas []ecs.Metadata) []ComponentManifest {
	out := make([]ComponentManifest, len(metas))
	for i, m := range metas {
		out[i] = ComponentManifest{Name: m.Name, Primitive: m.Type.Primitive.String(), Shape: append([]int{}, m.Type.Shape...)}
	}
	return out
}

// WriteToDir persists exec's manifest (metadata.json) and a textual
// description of its traced graph (hlo.binpb) under dir, one directory per
// compiled unit — mirrors the original implementation's build artifact
// layout, without a real accelerator IR to emit for the binary payload.
func WriteToDir(dir string, exec *Exec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "pipeline: create exec dir")
	}
	manifest := ExecManifest{
		Name:    exec.Name(),
		Params:  toManifest(exec.Params()),
		Outputs: toManifest(exec.Outputs()),
	}
	metaBytes, err := jsonAPI.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "pipeline: marshal exec manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), metaBytes, 0o644); err != nil {
		return errors.Wrap(err, "pipeline: write metadata.json")
	}

	graph := device.Describe(exec.module.Return)
	graphBytes, err := jsonAPI.Marshal(graph)
	if err != nil {
		return errors.Wrap(err, "pipeline: marshal traced graph")
	}
	if err := os.WriteFile(filepath.Join(dir, "hlo.binpb"), graphBytes, 0o644); err != nil {
		return errors.Wrap(err, "pipeline: write hlo.binpb")
	}
	return nil
}

// ReadManifest loads metadata.json from dir, used by ReadFromDir (and so by
// `conduit run --dir`) to discover what an on-disk build exposes without
// re-tracing any system.
func ReadManifest(dir string) (*ExecManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: read metadata.json")
	}
	var manifest ExecManifest
	if err := jsonAPI.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "pipeline: unmarshal metadata.json")
	}
	return &manifest, nil
}

func fromManifest(entries []ComponentManifest) ([]ecs.Metadata, error) {
	out := make([]ecs.Metadata, len(entries))
	for i, entry := range entries {
		prim, ok := ecs.ParsePrimitive(entry.Primitive)
		if !ok {
			return nil, errors.Errorf("pipeline: unknown primitive %q for component %q", entry.Primitive, entry.Name)
		}
		out[i] = ecs.Metadata{Name: entry.Name, Type: ecs.ComponentType{Primitive: prim, Shape: append([]int{}, entry.Shape...)}}
	}
	return out, nil
}

// ReadFromDir reconstructs a runnable, NotCompiled Exec from dir exactly as
// WriteToDir left it, without re-tracing any System (spec.md §4.5's
// read_from_dir). The traced graph's own Parameter nodes already carry
// their shape and dtype, so the Module's parameter list is rebuilt
// straight from the parsed graph (device.ParamSpecsFromExpr) rather than
// from the manifest; the manifest instead supplies the ecs.Metadata each
// parameter/output index is bound to, for Exec.Params()/Outputs() ordering.
func ReadFromDir(dir string, client device.Client, pool *device.CompilePool) (*Exec, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	graphBytes, err := os.ReadFile(filepath.Join(dir, "hlo.binpb"))
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: read hlo.binpb")
	}
	var graph map[string]any
	if err := jsonAPI.Unmarshal(graphBytes, &graph); err != nil {
		return nil, errors.Wrap(err, "pipeline: unmarshal traced graph")
	}
	ret, err := device.Parse(graph)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: parse traced graph")
	}

	mod, err := device.NewModule(device.ParamSpecsFromExpr(ret), ret)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: rebuild module")
	}

	params, err := fromManifest(manifest.Params)
	if err != nil {
		return nil, err
	}
	outputs, err := fromManifest(manifest.Outputs)
	if err != nil {
		return nil, err
	}

	return &Exec{
		name:    manifest.Name,
		client:  client,
		pool:    pool,
		module:  mod,
		params:  params,
		outputs: outputs,
		state:   NotCompiled,
	}, nil
}

// ExecSetManifest records which subdirectories under a build output hold
// startup-only execs versus every-tick execs (spec.md §4.6's startup/tick
// split), so `conduit run --dir` can reconstruct both of a WorldExec's
// system lists without re-tracing anything.
type ExecSetManifest struct {
	Startup []string `json:"startup"`
	Tick    []string `json:"tick"`
}

// WriteSetToDir persists every Exec in startup and tick under dir (one
// subdirectory per Exec.Name(), via WriteToDir) plus set.json recording
// which list each came from.
func WriteSetToDir(dir string, startup, tick []*Exec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "pipeline: create exec set dir")
	}
	var set ExecSetManifest
	for _, e := range startup {
		if err := WriteToDir(filepath.Join(dir, e.Name()), e); err != nil {
			return err
		}
		set.Startup = append(set.Startup, e.Name())
	}
	for _, e := range tick {
		if err := WriteToDir(filepath.Join(dir, e.Name()), e); err != nil {
			return err
		}
		set.Tick = append(set.Tick, e.Name())
	}
	data, err := jsonAPI.MarshalIndent(set, "", "  ")
	if err != nil {
		return errors.Wrap(err, "pipeline: marshal exec set manifest")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, "set.json"), data, 0o644), "pipeline: write set.json")
}

// ReadSetFromDir is WriteSetToDir's inverse, reconstructing both system
// lists via ReadFromDir without re-tracing anything (spec.md §8's
// write_to_dir/read_from_dir round-trip property).
func ReadSetFromDir(dir string, client device.Client, pool *device.CompilePool) (startup, tick []*Exec, err error) {
	data, err := os.ReadFile(filepath.Join(dir, "set.json"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "pipeline: read set.json")
	}
	var set ExecSetManifest
	if err := jsonAPI.Unmarshal(data, &set); err != nil {
		return nil, nil, errors.Wrap(err, "pipeline: unmarshal set.json")
	}
	for _, name := range set.Startup {
		e, err := ReadFromDir(filepath.Join(dir, name), client, pool)
		if err != nil {
			return nil, nil, err
		}
		startup = append(startup, e)
	}
	for _, name := range set.Tick {
		e, err := ReadFromDir(filepath.Join(dir, name), client, pool)
		if err != nil {
			return nil, nil, err
		}
		tick = append(tick, e)
	}
	return startup, tick, nil
}
