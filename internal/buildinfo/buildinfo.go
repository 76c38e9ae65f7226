package buildinfo

const Graffiti = " _   _  ____    _    ____  ______   __\n| \\ | || ____|  / \\  |  _ \\| __ ) \\ / /\n|  \\| ||  _|   / _ \\ | |_) |  _ \\\\ V / \n| |\\  || |___ / ___ \\|  _ <| |_) || |  \n|_| \\_||_____/_/   \\_\\_| \\_\\____/ |_|  \n\n"

var (
	BuildTag string = "v0.0.0"
	Name     string = "NEARBY"
	Time     string = ""
)

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

var Info buildinfo
