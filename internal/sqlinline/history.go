package sqlinline

const QInsertHistoryEntry = `--sql 8c2e6a1f-3b7d-4e59-a0c4-6f1d2b9e7a35
insert into history_entries(id, session_id, original_image_ref, processed_image_ref, style_id, intensity, created_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::double precision, $7::timestamptz)
on conflict (id) do nothing;
`

const QSelectRecentHistory = `--sql 1f4b9d7c-2e86-4a3b-b5c1-9e0d7f6a2c48
select id::text, session_id::text, original_image_ref, processed_image_ref, style_id, intensity, created_at
from history_entries
order by created_at desc, id desc
limit $1::int;
`
