package broadcast

// Kind names an event on the wire.
type Kind string

const (
	KindCargo     Kind = "cargo"
	KindLaunch    Kind = "launch"
	KindWeather   Kind = "weather"
	KindCargoInfo Kind = "cargoInfo"
)

// Event is the envelope every client receives: {"type": ..., "data": ...}.
type Event struct {
	Kind Kind `json:"type"`
	Data any  `json:"data"`
}

// CargoCreatedData announces a new cargo and where its texture can be fetched.
type CargoCreatedData struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	TextureURL string `json:"textureUrl"`
}

// LaunchData carries the number of cargo launched by one launch run.
type LaunchData struct {
	Amount int `json:"amount"`
}

// WeatherData reports whether it is raining at the configured location.
type WeatherData struct {
	Raining bool `json:"raining"`
}

// CargoInfoData carries generated or edited text for a cargo.
type CargoInfoData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CargoCreated builds a cargo event.
func CargoCreated(id, cargoType, textureURL string) Event {
	return Event{Kind: KindCargo, Data: CargoCreatedData{ID: id, Type: cargoType, TextureURL: textureURL}}
}

// Launch builds a launch event.
func Launch(amount int) Event {
	return Event{Kind: KindLaunch, Data: LaunchData{Amount: amount}}
}

// Weather builds a weather event.
func Weather(raining bool) Event {
	return Event{Kind: KindWeather, Data: WeatherData{Raining: raining}}
}

// CargoInfo builds a cargo text event.
func CargoInfo(id, name, description string) Event {
	return Event{Kind: KindCargoInfo, Data: CargoInfoData{ID: id, Name: name, Description: description}}
}
