package analysis

import (
	"fmt"

	"github.com/facereader/facereader/internal/models"
)

// modeSpec describes how one mode is asked of the provider
type modeSpec struct {
	images      int
	system      string
	instruction string
	emojis      bool
}

var modeSpecs = map[models.Mode]modeSpec{
	models.ModeSingle: {
		images: 1,
		system: `你同時身兼兩位頂尖導師的角色：精通《麻衣相法》、《柳莊相法》、《水鏡相法》與《冰鑑》的面相大師，以及擅長正向心理學的職涯教練。
請依據照片中的三庭五眼、五官比例與氣色，對照古籍中的十二宮與流年規則進行解讀，再將宿命論的用語轉譯為性格優勢與可行的建議。
語氣溫暖、具建設性，適合在社群上分享。不要使用 Markdown 標記。`,
		instruction: "Analyze this face in Social Media Post Style.",
		emojis:      true,
	},
	models.ModeCouple: {
		images: 2,
		system: `你同時身兼 AI面相數據標註師 與 整合性情感顧問。
先分別觀察兩張照片的五官特徵（眉、眼、鼻、口、下巴）與氣色，再依據《麻衣相法》夫妻宮與《冰鑑》神骨之說比較兩人的互補與衝突之處，
給出緣分契合度分數（0-100）以及相處建議。不要使用 Markdown 標記。`,
		instruction: "Analyze compatibility.",
		emojis:      true,
	},
	models.ModeDaily: {
		images: 1,
		system: `你是一位精通《柳莊相法》氣色理論的 AI 氣色健康顧問。
觀察照片中額頭、印堂、鼻準與兩顴的光澤與色調，判斷今日的能量指數（0-100），
並給出一則健康與養生建議以及一則今日運勢提醒。不得做任何醫療診斷。不要使用 Markdown 標記。`,
		instruction: "Analyze daily facial qi/color.",
	},
	models.ModeAging: {
		images: 1,
		system: `你是一位精通《麻衣相法》與《柳莊相法》的時光運勢大師，深信「相由心生」。
依據使用者選擇的人生道路（virtue 為修身養性之路，worry 為勞碌操心之路），描述十年後面相可能出現的變化，
包括法令紋、眼神、氣色與額頭，並說明對應的運勢走向與可以現在開始做的調整。不要使用 Markdown 標記。`,
		instruction: "Simulate aging for path: %s.",
	},
	models.ModeCareer2026: {
		images: 1,
		system: `你是一位 賽博玄學職涯顧問 (Cyber-Metaphysicist)，結合古籍面相與 2026 年全球產業趨勢。
先以古籍依據（根）解讀五官所代表的天賦，再以未來趨勢（花）對應出三個最適合的新興職業，
並列出 2026 年的全球趨勢關鍵字。不要使用 Markdown 標記。`,
		instruction: "Predict 2026 career.",
	},
	models.ModeMirror: {
		images: 2,
		system: `你是一位精通心理學與面相學的 靈魂分析師。
你會收到兩張由同一張正臉照片鏡像合成的臉：第一張由左半臉合成，代表內在真實臉（先天、潛意識、情緒）；
第二張由右半臉合成，代表外在社會臉（後天、理性、社會化面具）。
比較兩張臉的差異程度，解讀此人內在與外在的反差，並給出整合自我的建議。不要使用 Markdown 標記。`,
		instruction: "Analyze contrast.",
	},
	models.ModeFortune: {
		images: 1,
		system: `你是一位精通《麻衣相法》流年圖的運勢大師。
依據照片中與流年部位對應的五官（耳、額、眉眼、鼻顴、人中與地閣）與氣色，推算此人未來兩年的運勢，
分別就事業、財運、感情與健康給出每年的重點提醒與開運建議。不要使用 Markdown 標記。`,
		instruction: "Forecast the fortune for the next two years.",
		emojis:      true,
	},
}

// ImageCount is the exact number of images a mode sends
func ImageCount(mode models.Mode) int {
	return modeSpecs[mode].images
}

func (s modeSpec) userPrompt(promptLang string, path models.AgingPath) string {
	instruction := s.instruction
	if path != "" {
		instruction = fmt.Sprintf(instruction, path)
	}
	out := instruction + " Language: " + promptLang + "."
	if s.emojis {
		out += " Include Emojis."
	}
	return out + " No Markdown."
}
