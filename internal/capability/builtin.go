package capability

import (
	"net"
	"net/http"

	"github.com/rileyhilliard/barstat/internal/clock"
	"github.com/rileyhilliard/barstat/pkg/sshutil"
)

// Env holds what the built-in kinds read from the outside world. Zero
// fields get production defaults from Builtin.
type Env struct {
	Clock    clock.Clock
	ProcDir  string
	Stat     StatFunc
	Runner   Runner
	Resolver Resolver
	HTTP     Doer
	// Remote runs remote_command. When nil, Builtin creates an SSH pool
	// and closes it with the registry.
	Remote RemoteRunner
}

// Builtin returns a registry with every built-in kind.
func Builtin(env Env) *Registry {
	r := NewRegistry()

	if env.Clock == nil {
		env.Clock = clock.Real()
	}
	if env.ProcDir == "" {
		env.ProcDir = DefaultProcDir
	}
	if env.Stat == nil {
		env.Stat = Statfs
	}
	if env.Runner == nil {
		env.Runner = ExecRunner{}
	}
	if env.Resolver == nil {
		env.Resolver = net.DefaultResolver
	}
	if env.HTTP == nil {
		env.HTTP = &http.Client{Timeout: HTTPTimeout}
	}
	if env.Remote == nil {
		pool := sshutil.NewPool(sshutil.DefaultOptions().Dialer())
		r.OnClose(pool)
		env.Remote = pool
	}

	r.MustRegister(Kind{Name: "date_time", Capability: DateTime(env.Clock), DefaultFormat: DefaultDateFormat})
	r.MustRegister(Kind{Name: "disk_space", Capability: DiskSpace(env.Stat), DefaultFormat: " {mount}: {free} "})
	r.MustRegister(Kind{Name: "system_load", Capability: SystemLoad(env.ProcDir), DefaultFormat: " LOAD: {} "})
	r.MustRegister(Kind{Name: "uptime", Capability: Uptime(env.ProcDir), DefaultFormat: " UPTIME: {} "})
	r.MustRegister(Kind{Name: "file_count", Capability: FileCount(), DefaultFormat: " {} "})
	r.MustRegister(Kind{Name: "file_line_count", Capability: FileLineCount(), DefaultFormat: " {} "})
	r.MustRegister(Kind{Name: "output_text", Capability: OutputText(env.Runner), DefaultFormat: " {} "})
	r.MustRegister(Kind{Name: "output_line_count", Capability: OutputLineCount(env.Runner), DefaultFormat: " {} "})
	r.MustRegister(Kind{Name: "dns_lookup", Capability: DNSLookup(env.Resolver), DefaultFormat: " DNS: {} "})
	r.MustRegister(Kind{Name: "wan_connection", Capability: WANConnection(env.HTTP), DefaultFormat: " WAN: {} "})
	r.MustRegister(Kind{Name: "nvidia_stats", Capability: NvidiaStats(env.Runner), DefaultFormat: " GPU: {temperature}°C {pfan}% "})
	r.MustRegister(Kind{Name: "volume", Capability: Volume(env.Runner), DefaultFormat: " ♫ {}% "})
	r.MustRegister(Kind{Name: "remote_command", Capability: RemoteCommand(env.Remote), DefaultFormat: " {} "})

	return r
}
