package block

// ID представляет идентификатор типа блока. Значение помещается в один байт,
// что используется сетевым форматом и протоколом пикинга.
type ID uint8

// Константы ID блоков. Набор закрытый: любой другой ID считается невалидным.
const (
	Air     ID = iota // 0, пустота
	Bedrock           // 1, нижний слой
	Rock              // 2
	Dirt              // 3
	Grass             // 4, верх колонки над водой
	Sand              // 5
	Water             // 6
	Wood              // 7, ствол
	Leaves            // 8
	Lamp              // 9, светится сам

	numKinds // всегда последний: количество типов
)

// None обозначает отсутствие блока (вне границ мира).
// 255 зарезервировано протоколом пикинга и никогда не хранится в сетке.
const None ID = 0xFF

// Properties содержит неизменяемый набор флагов для типа блока
type Properties struct {
	Name        string
	Spawnable   bool // игрок может появиться на этом блоке
	Transparent bool // соседние грани остаются видимыми
	SelfLit     bool // всегда освещён, независимо от карты высот
	Gravity     bool // падает, если под ним пусто (обрабатывается снаружи)
	Fluid       bool
}

// table индексируется по ID; заполняется один раз и больше не меняется.
var table = [numKinds]Properties{
	Air:     {Name: "air", Transparent: true},
	Bedrock: {Name: "bedrock", Spawnable: true},
	Rock:    {Name: "rock", Spawnable: true},
	Dirt:    {Name: "dirt", Spawnable: true},
	Grass:   {Name: "grass", Spawnable: true},
	Sand:    {Name: "sand", Spawnable: true, Gravity: true},
	Water:   {Name: "water", Transparent: true, Fluid: true},
	Wood:    {Name: "wood", Spawnable: true},
	Leaves:  {Name: "leaves", Transparent: true},
	Lamp:    {Name: "lamp", Spawnable: true, SelfLit: true},
}

// Valid проверяет, является ли ID допустимым идентификатором блока
func (id ID) Valid() bool {
	return id < numKinds
}

// Sanitize возвращает сам ID или Air, если ID невалиден
func (id ID) Sanitize() ID {
	if !id.Valid() {
		return Air
	}
	return id
}

// Props возвращает свойства блока. Для невалидных ID возвращаются свойства Air.
func (id ID) Props() Properties {
	return table[id.Sanitize()]
}

// Name возвращает имя блока
func (id ID) Name() string {
	if id == None {
		return "none"
	}
	return id.Props().Name
}

func (id ID) IsAir() bool         { return id == Air }
func (id ID) IsTransparent() bool { return id.Props().Transparent }
func (id ID) IsOpaque() bool      { return !id.Props().Transparent }
func (id ID) IsSelfLit() bool     { return id.Props().SelfLit }
func (id ID) IsFluid() bool       { return id.Props().Fluid }
func (id ID) HasGravity() bool    { return id.Props().Gravity }
func (id ID) IsSpawnable() bool   { return id.Props().Spawnable }

// All возвращает все валидные ID по возрастанию
func All() []ID {
	ids := make([]ID, 0, numKinds)
	for id := ID(0); id < numKinds; id++ {
		ids = append(ids, id)
	}
	return ids
}

// ByName ищет блок по имени
func ByName(name string) (ID, bool) {
	for id, p := range table {
		if p.Name == name {
			return ID(id), true
		}
	}
	return None, false
}
