package api

import (
	"time"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/studio"
)

type itemResponse struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	IsCustom bool   `json:"is_custom"`
	Prompt   string `json:"prompt,omitempty"`
	Custom   bool   `json:"custom,omitempty"`
}

func toItem(it catalog.Item) itemResponse {
	return itemResponse{
		ID:       it.ID,
		Kind:     string(it.Kind),
		Name:     it.Name,
		Image:    dataURL(it.Image),
		IsCustom: it.IsCustom,
		Prompt:   it.Prompt,
		Custom:   it.Custom,
	}
}

type catalogResponse struct {
	Products    []itemResponse `json:"products"`
	Models      []itemResponse `json:"models"`
	Scenes      []itemResponse `json:"scenes"`
	Accessories []itemResponse `json:"accessories"`
	Poses       []itemResponse `json:"poses"`
}

func toCatalog(store *catalog.Store) catalogResponse {
	items := func(kind catalog.Kind) []itemResponse {
		list := store.List(kind)
		out := make([]itemResponse, 0, len(list))
		for _, it := range list {
			out = append(out, toItem(it))
		}
		return out
	}
	return catalogResponse{
		Products:    items(catalog.KindProduct),
		Models:      items(catalog.KindModel),
		Scenes:      items(catalog.KindScene),
		Accessories: items(catalog.KindAccessory),
		Poses:       items(catalog.KindPose),
	}
}

type picksRequest struct {
	ProductIDs   []int64 `json:"product_ids"`
	ModelIDs     []int64 `json:"model_ids"`
	SceneID      int64   `json:"scene_id"`
	Color        string  `json:"color"`
	PoseID       int64   `json:"pose_id"`
	PosePrompt   string  `json:"pose_prompt"`
	AccessoryIDs []int64 `json:"accessory_ids"`
}

type picksResponse struct {
	picksRequest
	IdentityLocked bool `json:"identity_locked"`
}

func toPicks(p catalog.Picks) picksResponse {
	return picksResponse{
		picksRequest: picksRequest{
			ProductIDs:   nonNil(p.ProductIDs),
			ModelIDs:     nonNil(p.ModelIDs),
			SceneID:      p.SceneID,
			Color:        p.Color,
			PoseID:       p.PoseID,
			PosePrompt:   p.PosePrompt,
			AccessoryIDs: nonNil(p.AccessoryIDs),
		},
		IdentityLocked: p.IdentityLock != nil,
	}
}

type angleImageResponse struct {
	Angle string `json:"angle"`
	Image string `json:"image"`
}

type videoSlotResponse struct {
	State      string `json:"state"`
	IsLoading  bool   `json:"is_loading"`
	ResultURL  string `json:"result_url,omitempty"`
	DirectLink string `json:"direct_link,omitempty"`
	Error      string `json:"error,omitempty"`
	Progress   string `json:"progress,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
}

func toSlot(v studio.VideoSlot) videoSlotResponse {
	return videoSlotResponse{
		State:      string(v.State),
		IsLoading:  v.Loading(),
		ResultURL:  v.ResultURL,
		DirectLink: v.DirectLink,
		Error:      v.Error,
		Progress:   v.Progress,
		Attempts:   v.Attempts,
	}
}

type jobResponse struct {
	ID               string               `json:"id"`
	ModelID          int64                `json:"model_id"`
	ModelName        string               `json:"model_name"`
	Status           string               `json:"status"`
	Error            string               `json:"error,omitempty"`
	Images           []angleImageResponse `json:"images"`
	Representative   *angleImageResponse  `json:"representative_image,omitempty"`
	Cutout           string               `json:"cutout_image,omitempty"`
	CutoutError      string               `json:"cutout_error,omitempty"`
	CuttingOut       bool                 `json:"cutting_out"`
	VideoPrompt      string               `json:"video_prompt,omitempty"`
	DescriptionError string               `json:"description_error,omitempty"`
	Describing       bool                 `json:"describing"`
	Preview          videoSlotResponse    `json:"preview_video"`
	Final            videoSlotResponse    `json:"final_video"`
	Display          string               `json:"display"`
}

func toJob(j studio.Job) jobResponse {
	out := jobResponse{
		ID:               j.ID,
		ModelID:          j.Model.ID,
		ModelName:        j.Model.Name,
		Status:           string(j.Status),
		Error:            j.Error,
		Images:           make([]angleImageResponse, 0, len(j.Images)),
		CutoutError:      j.CutoutError,
		CuttingOut:       j.CuttingOut,
		VideoPrompt:      j.VideoPrompt,
		DescriptionError: j.DescriptionError,
		Describing:       j.Describing,
		Preview:          toSlot(j.Preview),
		Final:            toSlot(j.Final),
		Display:          string(j.Display),
	}
	for _, img := range j.Images {
		out.Images = append(out.Images, angleImageResponse{Angle: string(img.Angle), Image: img.Image.DataURL()})
	}
	if j.Representative != nil {
		out.Representative = &angleImageResponse{Angle: string(j.Representative.Angle), Image: j.Representative.Image.DataURL()}
	}
	if j.Cutout != nil {
		out.Cutout = j.Cutout.DataURL()
	}
	return out
}

func toJobs(jobs []studio.Job) []jobResponse {
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJob(j))
	}
	return out
}

type stateResponse struct {
	RunID       uint64        `json:"run_id"`
	Phase       string        `json:"phase"`
	Error       string        `json:"error,omitempty"`
	CanGenerate bool          `json:"can_generate"`
	Jobs        []jobResponse `json:"jobs"`
	Picks       picksResponse `json:"picks"`
}

type lookbookEntryResponse struct {
	ID      string        `json:"id"`
	SavedAt time.Time     `json:"saved_at"`
	Jobs    []jobResponse `json:"jobs"`
}

func toLookbookEntry(e studio.LookbookEntry) lookbookEntryResponse {
	return lookbookEntryResponse{ID: e.ID, SavedAt: e.SavedAt, Jobs: toJobs(e.Jobs)}
}

func dataURL(a asset.Asset) string {
	if a.IsZero() {
		return ""
	}
	return a.DataURL()
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
