package config

// Defaults holds the run settings a config file may set for every merge.
type Defaults struct {
	// Color enables ANSI styles. Nil leaves the current value.
	Color *bool `yaml:"color,omitempty"`

	// Output is the merged report path.
	Output string `yaml:"output,omitempty"`

	// Format is the output format name.
	Format string `yaml:"format,omitempty"`

	// Workers is the parse concurrency.
	Workers int `yaml:"workers,omitempty"`

	// Extensions are the accepted report file extensions.
	Extensions []string `yaml:"extensions,omitempty"`

	// Exclude holds base name glob patterns of files to skip.
	Exclude []string `yaml:"exclude,omitempty"`
}

// FunctionConfig holds settings for the merged report of one function.
type FunctionConfig struct {
	// Output overrides the merged report path.
	Output string `yaml:"output,omitempty"`

	// Format overrides the output format.
	Format string `yaml:"format,omitempty"`
}

// File represents the structure of the .lpmerge configuration file.
type File struct {
	// Defaults apply to every run unless a flag says otherwise.
	Defaults Defaults `yaml:"defaults,omitempty"`

	// Functions maps profiled function names to their settings.
	Functions map[string]FunctionConfig `yaml:"functions,omitempty"`
}

// ForFunction returns the settings for the merged report of a function.
// The second result is false when the file has no entry for it.
func (cf *File) ForFunction(name string) (FunctionConfig, bool) {
	if cf == nil {
		return FunctionConfig{}, false
	}
	fc, ok := cf.Functions[name]
	if !ok || (fc.Output == "" && fc.Format == "") {
		return FunctionConfig{}, false
	}
	return fc, true
}

// Outputs returns every output path named by a function entry.
func (cf *File) Outputs() []string {
	if cf == nil {
		return nil
	}
	var outputs []string
	for _, fc := range cf.Functions {
		if fc.Output != "" {
			outputs = append(outputs, fc.Output)
		}
	}
	return outputs
}
